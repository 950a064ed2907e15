package adapter

import (
	"context"
	"fmt"
	"sync"

	"gobot.io/x/gobot/v2/drivers/i2c"
)

// GobotBus exposes a gobot i2c.Connector (e.g. the nanopi adaptor) as a
// loadcell.I2CBus. Per-address connections are opened lazily and cached for
// the life of the bus.
type GobotBus struct {
	mx        sync.Mutex
	connector i2c.Connector
	busNum    int
	conns     map[byte]i2c.Connection
}

func NewGobotBus(connector i2c.Connector, busNum int) *GobotBus {
	return &GobotBus{
		connector: connector,
		busNum:    busNum,
		conns:     make(map[byte]i2c.Connection),
	}
}

func (b *GobotBus) WriteToAddr(_ context.Context, address byte, buffer []byte) error {
	conn, err := b.connection(address)
	if err != nil {
		return err
	}
	n, err := conn.Write(buffer)
	if err != nil {
		return fmt.Errorf("could not write to %x: %w", address, err)
	}
	if n != len(buffer) {
		return fmt.Errorf("short write to %x: %d of %d bytes", address, n, len(buffer))
	}
	return nil
}

func (b *GobotBus) ReadFromAddr(_ context.Context, address byte, buffer []byte) error {
	conn, err := b.connection(address)
	if err != nil {
		return err
	}
	n, err := conn.Read(buffer)
	if err != nil {
		return fmt.Errorf("could not read from %x: %w", address, err)
	}
	if n != len(buffer) {
		return fmt.Errorf("short read from %x: %d of %d bytes", address, n, len(buffer))
	}
	return nil
}

func (b *GobotBus) Release(context.Context) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	var first error
	for addr, conn := range b.conns {
		if err := conn.Close(); err != nil && first == nil {
			first = fmt.Errorf("could not close connection to %x: %w", addr, err)
		}
		delete(b.conns, addr)
	}
	return first
}

func (b *GobotBus) connection(address byte) (i2c.Connection, error) {
	b.mx.Lock()
	defer b.mx.Unlock()
	if conn, ok := b.conns[address]; ok {
		return conn, nil
	}
	conn, err := b.connector.GetI2cConnection(int(address), b.busNum)
	if err != nil {
		return nil, fmt.Errorf("could not open i2c connection to %x: %w", address, err)
	}
	b.conns[address] = conn
	return conn, nil
}
