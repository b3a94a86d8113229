package main

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"strconv"

	"github.com/r30x/fpdriver/internal/driver"
	"github.com/r30x/fpdriver/internal/fpproto"
)

func cmdHandshake(d *driver.Driver, _ []string) error {
	ok, err := d.Handshake()
	if err != nil {
		return err
	}
	fmt.Printf("handshake ok: %v\n", ok)
	return nil
}

func cmdRandom(d *driver.Driver, _ []string) error {
	v, err := d.RandomGet()
	if err != nil {
		return err
	}
	fmt.Printf("random: %d\n", v)
	return nil
}

func cmdIndex(d *driver.Driver, _ []string) error {
	capacity, err := d.Capacity()
	if err != nil {
		return err
	}
	used, err := d.TemplateIndex()
	if err != nil {
		return err
	}
	count, err := d.TemplateCount()
	if err != nil {
		return err
	}
	var indexes []int
	for i, occupied := range used {
		if occupied {
			indexes = append(indexes, i)
		}
	}
	fmt.Printf("capacity: %d\nused count: %d\nused indexes: %v\n", capacity, count, indexes)
	return nil
}

func cmdDelete(d *driver.Driver, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: delete <index>")
	}
	idx, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid index: %w", err)
	}
	if err := d.TemplateDelete(uint16(idx), 1); err != nil {
		return err
	}
	fmt.Println("template deleted")
	return nil
}

// captureAndConvert waits for a finger, captures and converts an image
// into buffer, retrying up to 3 times on a poor-quality read before
// giving up, matching the original enroll/search examples.
func captureAndConvert(d *driver.Driver, buffer fpproto.BufferID) error {
	waitForFinger(d, false)
	waitForFinger(d, true)
	defer d.Backlight(false)

	if err := d.ImageCapture(false); err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	var lastErr error
	for tries := 0; tries < 3; tries++ {
		if err := d.ImageConvert(buffer); err != nil {
			lastErr = err
			fmt.Printf("poor image quality (%v), try again\n", err)
			waitForFinger(d, false)
			waitForFinger(d, true)
			if err := d.ImageCapture(false); err != nil {
				return fmt.Errorf("capture: %w", err)
			}
			continue
		}
		return nil
	}
	return fmt.Errorf("unable to get a good fingerprint image: %w", lastErr)
}

func cmdEnroll(d *driver.Driver, _ []string) error {
	if err := captureAndConvert(d, fpproto.Buffer1); err != nil {
		return err
	}
	found, _, err := d.TemplateSearch(fpproto.Buffer1, 0, 0xFFFF, false)
	if err != nil {
		return err
	}
	if found != -1 {
		return fmt.Errorf("finger already registered at index #%d", found)
	}

	for {
		if err := captureAndConvert(d, fpproto.Buffer2); err != nil {
			return err
		}
		score, err := d.TemplateMatch()
		if err != nil {
			return err
		}
		if score > 0 {
			break
		}
		fmt.Println("fingers don't match, try again")
	}

	if err := d.TemplateCreate(); err != nil {
		return fmt.Errorf("template create: %w", err)
	}
	capacity, err := d.Capacity()
	if err != nil {
		return err
	}
	used, err := d.TemplateIndex()
	if err != nil {
		return err
	}
	slot := int32(-1)
	for i := uint16(0); i < capacity; i++ {
		if !used[i] {
			slot = int32(i)
			break
		}
	}
	if slot < 0 {
		return fmt.Errorf("no free template slot")
	}
	if err := d.TemplateStore(fpproto.Buffer1, uint16(slot)); err != nil {
		return fmt.Errorf("template store: %w", err)
	}
	fmt.Printf("fingerprint stored successfully at index #%d\n", slot)
	return nil
}

func cmdSearch(d *driver.Driver, _ []string) error {
	if err := captureAndConvert(d, fpproto.Buffer1); err != nil {
		return err
	}
	found, score, err := d.TemplateSearch(fpproto.Buffer1, 0, 0xFFFF, false)
	if err != nil {
		return err
	}
	if found == -1 {
		fmt.Println("fingerprint not found in database")
		return nil
	}
	fmt.Printf("found fingerprint at index #%d with score %d\n", found, score)
	return nil
}

func cmdImage(d *driver.Driver, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: image <out.png>")
	}
	waitForFinger(d, false)
	waitForFinger(d, true)
	if err := d.ImageCapture(false); err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	_ = d.Backlight(false)

	fmt.Println("image captured, downloading...")
	pixels, err := d.ImageDownload()
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	return writePNG(args[0], 256, 288, pixels)
}

// writePNG saves the sensor's unpacked grayscale capture as a PNG —
// a thin preview like the original's PIL-based image.show(), not a
// product rendering feature.
func writePNG(path string, w, h int, pixels []byte) error {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: pixels[y*w+x]})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}
