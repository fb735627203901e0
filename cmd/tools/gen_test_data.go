package main

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"messenger/infrastructure/storage"
	"os"
	"path/filepath"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// Writes fixtures for a local run: a directory seed and a few upload candidates.
func main() {
	outputDir := "./test_data"
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		panic(fmt.Sprintf("cannot create %s: %v", outputDir, err))
	}

	fmt.Println("Generating test data...")

	// 1. Directory seed, point DIRECTORY_SEED_FILE at it
	genSeed(filepath.Join(outputDir, "directory.yaml"))

	// 2. A real PNG, accepted by both upload endpoints
	genImage(filepath.Join(outputDir, "capture_test.png"))

	// 3. Plain text named like an image, rejected by content sniffing
	genDisguised(filepath.Join(outputDir, "not_an_image.png"))

	fmt.Printf("\nDone. Upload files from %s with curl -F file=@...\n", outputDir)
}

func genSeed(path string) {
	seed := storage.DirectorySeed{Users: []storage.SeedUser{
		{ID: 1, Name: "Alice", Avatar: lo.ToPtr("/uploads/avatars/alice.png")},
		{ID: 2, Name: "Bob"},
		{ID: 3, Name: "Carol"},
		{ID: 4, Name: "Dave"},
	}}
	out, err := yaml.Marshal(seed)
	if err != nil {
		fmt.Printf("seed: %v\n", err)
		return
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		fmt.Printf("seed: %v\n", err)
		return
	}
	fmt.Printf("Directory seed: %s\n", path)
}

func genImage(path string) {
	width, height := 320, 240
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 255), G: 100, B: 200, A: 0xff})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		fmt.Printf("image: %v\n", err)
		return
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		fmt.Printf("image: %v\n", err)
		return
	}
	fmt.Printf("Image: %s\n", path)
}

func genDisguised(path string) {
	if err := os.WriteFile(path, []byte("just some text pretending to be a picture\n"), 0644); err != nil {
		fmt.Printf("disguised: %v\n", err)
		return
	}
	fmt.Printf("Disguised text: %s\n", path)
}
