package sixlowpan_test

import (
	"github.com/stretchr/testify/mock"

	"github.com/exepirit/sixlowpan-go/pkg/sixlowpan"
)

var _ sixlowpan.Radio = &MockRadio{}

// MockRadio is a testify mock of sixlowpan.Radio.
type MockRadio struct {
	mock.Mock
}

func (m *MockRadio) Transmit(frame []byte) error {
	args := m.Called(frame)
	return args.Error(0)
}

func (m *MockRadio) Receive(buf []byte) (int, error) {
	args := m.Called(buf)
	return args.Int(0), args.Error(1)
}

func (m *MockRadio) AddrExt(dst []byte) error {
	args := m.Called(dst)
	return args.Error(0)
}

func (m *MockRadio) PANID() uint16 {
	args := m.Called()
	return args.Get(0).(uint16)
}

func (m *MockRadio) AddrShort() uint16 {
	args := m.Called()
	return args.Get(0).(uint16)
}

func (m *MockRadio) SetAddrShort(addr uint16) error {
	args := m.Called(addr)
	return args.Error(0)
}
