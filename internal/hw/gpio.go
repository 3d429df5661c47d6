package hw

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// PinSampler reads the instantaneous level of one input pin per port.
// A high level means the door is closed.
type PinSampler interface {
	Read() ([]bool, error)
	Close() error
}

var hostInit struct {
	once sync.Once
	err  error
}

// GPIOSampler samples door reed switches through periph.io.
type GPIOSampler struct {
	pins []gpio.PinIO
}

// OpenGPIO claims the named pins as pulled-up inputs.
func OpenGPIO(names []string) (*GPIOSampler, error) {
	hostInit.once.Do(func() {
		_, hostInit.err = host.Init()
	})
	if hostInit.err != nil {
		return nil, fmt.Errorf("failed to initialize gpio host: %w", hostInit.err)
	}

	s := &GPIOSampler{}
	for _, name := range names {
		p := gpioreg.ByName(name)
		if p == nil {
			_ = s.Close()
			return nil, fmt.Errorf("gpio pin %q not found", name)
		}
		if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to configure pin %s: %w", name, err)
		}
		s.pins = append(s.pins, p)
	}
	return s, nil
}

func (s *GPIOSampler) Read() ([]bool, error) {
	levels := make([]bool, len(s.pins))
	for i, p := range s.pins {
		levels[i] = p.Read() == gpio.High
	}
	return levels, nil
}

// Close releases every claimed pin.
func (s *GPIOSampler) Close() error {
	var errs []error
	for _, p := range s.pins {
		if err := p.Halt(); err != nil {
			errs = append(errs, fmt.Errorf("halt %s: %w", p.Name(), err))
		}
	}
	s.pins = nil
	return errors.Join(errs...)
}
