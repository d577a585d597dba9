package drivers

import (
	"context"
	"fmt"
	"io"
	"sync"
)

const mockDriverName = "mock_driver"

type MockOutput struct {
	state            bool
	pin              uint16
	mx               sync.Mutex
	writeTo          io.Writer
	writeStateChange bool
}

func (mo *MockOutput) GetState() (bool, error) {
	mo.mx.Lock()
	defer mo.mx.Unlock()
	return mo.state, nil
}

func (mo *MockOutput) Set(state bool) error {
	mo.mx.Lock()
	defer mo.mx.Unlock()
	if mo.writeStateChange && state != mo.state {
		fmt.Fprintf(mo.writeTo, "[pin %d] state changed to %v\n", mo.pin, state)
	}
	mo.state = state
	return nil
}

// MockInput is safe to drive from a goroutine other than the one
// polling it, the way cmd/mock's simulated finger does.
type MockInput struct {
	State bool

	mx  sync.Mutex
	pin uint16
}

func (mi *MockInput) GetState() (bool, error) {
	mi.mx.Lock()
	defer mi.mx.Unlock()
	return mi.State, nil
}

func (mi *MockInput) set(state bool) {
	mi.mx.Lock()
	defer mi.mx.Unlock()
	mi.State = state
}

type MockIoDriver struct {
	inputs  []*MockInput
	outputs []*MockOutput
	ready   bool
}

func (md *MockIoDriver) Setup(ctx context.Context, inputs []uint16, outputs []uint16) error {
	for _, inPin := range inputs {
		md.inputs = append(md.inputs, &MockInput{pin: inPin})
	}
	for _, outPin := range outputs {
		md.outputs = append(md.outputs, &MockOutput{pin: outPin})
	}
	md.ready = true
	return nil
}

func (md *MockIoDriver) Close() error {
	md.ready = false
	for _, output := range md.outputs {
		output.Set(false)
	}
	return nil
}

func (md *MockIoDriver) NameId() string {
	return mockDriverName
}

func (md *MockIoDriver) IsReady() bool {
	return md.ready
}

func (md *MockIoDriver) GetInput(pin uint16) (DigitalInput, error) {
	for _, input := range md.inputs {
		if pin == input.pin {
			return input, nil
		}
	}
	return nil, fmt.Errorf("mock input %d not found", pin)
}

func (md *MockIoDriver) GetOutput(pin uint16) (DigitalOutput, error) {
	for _, output := range md.outputs {
		if pin == output.pin {
			return output, nil
		}
	}
	return nil, fmt.Errorf("mock output %d not found", pin)
}

func (md *MockIoDriver) GetAllIo() (inputs []uint16, outputs []uint16) {
	for _, input := range md.inputs {
		inputs = append(inputs, input.pin)
	}
	for _, output := range md.outputs {
		outputs = append(outputs, output.pin)
	}
	return
}

// SetInput drives a mock input line from test or simulation code.
func (md *MockIoDriver) SetInput(pin uint16, state bool) error {
	for _, input := range md.inputs {
		if pin == input.pin {
			input.set(state)
			return nil
		}
	}
	return fmt.Errorf("mock input %d not found", pin)
}

// MonitorStateChanges makes every mock output report each state change
// to writer, one line per change.
func (md *MockIoDriver) MonitorStateChanges(writer io.Writer) {
	for _, out := range md.outputs {
		out.mx.Lock()
		out.writeTo = writer
		out.writeStateChange = true
		out.mx.Unlock()
	}
}
