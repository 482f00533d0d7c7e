// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ssd1306_test

import (
	"errors"
	"image"
	"log"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
	"periph.io/x/host/v3"

	"github.com/GermanBionicSystems/oledi2c/dwi2c"
	"github.com/GermanBionicSystems/oledi2c/mmio"
	"github.com/GermanBionicSystems/oledi2c/mmio/mmiotest"
	"github.com/GermanBionicSystems/oledi2c/ssd1306"
	"github.com/GermanBionicSystems/oledi2c/ssd1306/ssd1306test"
)

func Example() {
	// Make sure periph is initialized.
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}
	r, err := mmio.Map(mmio.DefaultBase)
	if err != nil {
		log.Fatal(err)
	}
	bus, err := dwi2c.New(r, nil)
	if err != nil {
		log.Fatal(err)
	}
	defer bus.Close()
	bus.Init()

	dev, err := ssd1306.NewI2C(bus, nil)
	if err != nil {
		log.Fatal(err)
	}
	if err := dev.InitDisplay(); err != nil {
		// The display keeps whatever it had; report and carry on.
		log.Printf("%s: %v", dev, err)
	}
	if err := dev.Clear(); err != nil {
		log.Printf("%s: %v", dev, err)
	}
	if err := dev.DisplayText("Hello, Phytium!"); err != nil {
		var e *dwi2c.Error
		if errors.As(err, &e) {
			log.Printf("text truncated after %d bytes", e.Index)
		}
	}
}

func ExampleDev_Draw() {
	// Preview on the terminal instead of real hardware.
	panel := ssd1306test.NewPanel(0x3c)
	s := mmiotest.Sim{Transaction: panel.Transaction}
	bus, err := dwi2c.New(&s, nil)
	if err != nil {
		log.Fatal(err)
	}
	bus.Init()
	dev, err := ssd1306.NewI2C(bus, nil)
	if err != nil {
		log.Fatal(err)
	}
	if err := dev.InitDisplay(); err != nil {
		log.Fatal(err)
	}

	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		log.Fatal(err)
	}
	w, h := dev.Bounds().Dx(), dev.Bounds().Dy()
	dc := gg.NewContext(w, h)
	dc.SetRGB(0, 0, 0)
	dc.Clear()
	dc.SetRGB(1, 1, 1)
	dc.SetFontFace(truetype.NewFace(f, &truetype.Options{Size: 14}))
	dc.DrawStringAnchored("periph", float64(w)/2, float64(h)/4, 0.5, 0.5)
	if err := dev.Draw(dev.Bounds(), dc.Image(), image.Point{}); err != nil {
		log.Fatal(err)
	}
	if err := panel.RenderStdout(32); err != nil {
		log.Fatal(err)
	}
}
