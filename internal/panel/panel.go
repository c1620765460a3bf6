// Package panel drives the TFT over SPI and adapts it to the renderer's
// blit interface.
package panel

import (
	"fmt"
	"image"

	st7789 "github.com/photonicat/periph.io-gc9307"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// Options names the SPI port and control pins.
type Options struct {
	SPIPort  string
	ResetPin string
	DCPin    string
	CSPin    string
	BLPin    string
	Width    int
	Height   int
}

// Panel is an open display. Close releases the SPI port.
type Panel struct {
	dev    st7789.Device
	port   spi.PortCloser
	width  int
	height int
}

// Open initializes the host, opens SPI and configures the controller.
func Open(opts Options) (*Panel, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}

	port, err := spireg.Open(opts.SPIPort)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", opts.SPIPort, err)
	}

	conn, err := port.Connect(100000*physic.KiloHertz, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("connect %s: %w", opts.SPIPort, err)
	}

	rst, err := pin(opts.ResetPin)
	if err != nil {
		port.Close()
		return nil, err
	}
	dc, err := pin(opts.DCPin)
	if err != nil {
		port.Close()
		return nil, err
	}
	cs, err := pin(opts.CSPin)
	if err != nil {
		port.Close()
		return nil, err
	}
	bl, err := pin(opts.BLPin)
	if err != nil {
		port.Close()
		return nil, err
	}

	dev := st7789.New(conn, rst, dc, cs, bl)
	dev.Configure(st7789.Config{
		Width:        int16(opts.Width),
		Height:       int16(opts.Height),
		Rotation:     st7789.ROTATION_180,
		RowOffset:    0,
		ColumnOffset: 0,
		FrameRate:    st7789.FRAMERATE_60,
		VSyncLines:   st7789.MAX_VSYNC_SCANLINES,
		UseCS:        false,
	})
	dev.EnableBacklight(true)

	return &Panel{dev: dev, port: port, width: opts.Width, height: opts.Height}, nil
}

func pin(name string) (gpio.PinOut, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpio %s not found", name)
	}
	return p, nil
}

// Blit pushes img to the panel at (x, y).
func (p *Panel) Blit(x, y int, img *image.RGBA) error {
	b := img.Bounds()
	p.dev.FillRectangleWithImage(int16(x), int16(y), int16(b.Dx()), int16(b.Dy()), img)
	return nil
}

// Size reports the configured panel dimensions.
func (p *Panel) Size() (int, int) {
	return p.width, p.height
}

// Backlight toggles the backlight pin.
func (p *Panel) Backlight(on bool) {
	p.dev.EnableBacklight(on)
}

// Close turns the backlight off and releases the SPI port.
func (p *Panel) Close() error {
	p.dev.EnableBacklight(false)
	return p.port.Close()
}
