package weather_station

import (
	"errors"
	"fmt"
	"image"
	"image/draw"

	"github.com/evkuzin/weatherstation-influx/config"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/inconsolata"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

var ErrDisplayOffline = errors.New("display is offline")

// text cursor of the first line, in pixels
const (
	cursorX = 0
	cursorY = 1
)

// Panel is the part of *ssd1306.Dev the renderer needs.
type Panel interface {
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
	Halt() error
}

// OLED renders the latest heat index and humidity on a monochrome panel.
// A nil panel makes an offline display: every call returns ErrDisplayOffline.
type OLED struct {
	panel  Panel
	frame  *image1bit.VerticalLSB
	face   font.Face
	logger logrus.FieldLogger
}

func NewSSD1306(bus i2c.Bus, conf config.Display) (*ssd1306.Dev, error) {
	dev, err := ssd1306.NewI2C(bus, &ssd1306.Opts{W: conf.Width, H: conf.Height})
	if err != nil {
		return nil, fmt.Errorf("cannot open ssd1306: %w", err)
	}
	return dev, nil
}

func NewOLED(panel Panel, logger logrus.FieldLogger) *OLED {
	d := &OLED{
		panel:  panel,
		face:   inconsolata.Regular8x16,
		logger: logger,
	}
	if panel != nil {
		d.frame = image1bit.NewVerticalLSB(panel.Bounds())
	}
	return d
}

// Init blanks the panel.
func (d *OLED) Init() error {
	if d.panel == nil {
		return ErrDisplayOffline
	}
	d.clear()
	if err := d.flush(); err != nil {
		return err
	}
	d.logger.Debugf("display %v cleared", d.panel.Bounds().Size())
	return nil
}

func (d *OLED) Render(humidity, heatIndex float64) error {
	if d.panel == nil {
		return ErrDisplayOffline
	}
	d.clear()

	m := d.face.Metrics()
	drawer := font.Drawer{
		Dst:  d.frame,
		Src:  &image.Uniform{C: image1bit.On},
		Face: d.face,
		Dot:  fixed.P(cursorX, cursorY+m.Ascent.Ceil()),
	}
	for _, line := range DisplayLines(humidity, heatIndex) {
		drawer.Dot.X = fixed.I(cursorX)
		drawer.DrawString(line)
		drawer.Dot.Y += m.Height
	}
	return d.flush()
}

func (d *OLED) Halt() error {
	if d.panel == nil {
		return nil
	}
	return d.panel.Halt()
}

// DisplayLines formats the two lines shown on the panel.
func DisplayLines(humidity, heatIndex float64) [2]string {
	return [2]string{
		fmt.Sprintf("%.2f C", heatIndex),
		fmt.Sprintf("%.2f g/m3", humidity),
	}
}

func (d *OLED) clear() {
	draw.Draw(d.frame, d.frame.Bounds(), &image.Uniform{C: image1bit.Off}, image.Point{}, draw.Src)
}

func (d *OLED) flush() error {
	if err := d.panel.Draw(d.frame.Bounds(), d.frame, image.Point{}); err != nil {
		return fmt.Errorf("cannot flush display: %w", err)
	}
	return nil
}
