package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xhad/studio/internal/models"
	"github.com/xhad/studio/pkg/imageutil"
	"github.com/xhad/studio/pkg/studio"
)

// loadImage reads a local file or downloads a remote URL as a data URL.
func loadImage(ctx context.Context, src string) (string, error) {
	if strings.HasPrefix(src, "data:") {
		return src, nil
	}
	if current.fetcher.IsRemote(src) {
		return current.fetcher.FetchDataURL(ctx, src)
	}
	return imageutil.ReadFile(src)
}

func loadImages(ctx context.Context, srcs []string) ([]string, error) {
	images := make([]string, len(srcs))
	for i, src := range srcs {
		img, err := loadImage(ctx, src)
		if err != nil {
			return nil, err
		}
		images[i] = img
	}
	return images, nil
}

var extensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"video/mp4":  ".mp4",
}

// saveResult writes a generated data URL to out, or to a name derived from the entry.
func saveResult(img models.GeneratedImage, out string) error {
	if out == "" {
		mimeType, _, err := imageutil.Parse(img.ResultURL)
		if err != nil {
			return err
		}
		ext, ok := extensions[mimeType]
		if !ok {
			ext = ".bin"
		}
		out = fmt.Sprintf("%s-%s%s", img.Type, img.ID[:min(8, len(img.ID))], ext)
	}
	if err := imageutil.WriteFile(out, img.ResultURL); err != nil {
		return err
	}
	color.Green("✓ %s saved to %s", img.Prompt, out)
	return nil
}

func newSceneCmd() *cobra.Command {
	var (
		opts     models.SceneOptions
		lighting models.Lighting
		yaw      float64
		pitch    float64
		auto     bool
		out      string
	)

	cmd := &cobra.Command{
		Use:   "scene <image>...",
		Short: "Place products in a photographed scene",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			images, err := loadImages(ctx, args)
			if err != nil {
				return err
			}

			if auto {
				opts.ProductLabel, _ = withSpinner("Identifying product...", func() (string, error) {
					return current.studio.DetectProductType(ctx, images[0]), nil
				})
				opts.RoomType, _ = withSpinner("Choosing a room...", func() (models.RoomType, error) {
					return current.studio.SuggestRoom(ctx, images[0], opts.ProductLabel), nil
				})
				color.Blue("Detected %s, staging in %s", opts.ProductLabel, opts.RoomType)
			}
			if cmd.Flags().Changed("yaw") || cmd.Flags().Changed("pitch") {
				opts.AngleMode = models.AngleCustom
				opts.CustomAngle = &models.Angle{Yaw: yaw, Pitch: pitch}
			}
			if cmd.Flags().Changed("brightness") || cmd.Flags().Changed("temperature") {
				opts.Lighting = &lighting
			}
			if opts.ReferenceImage != "" {
				if opts.ReferenceImage, err = loadImage(ctx, opts.ReferenceImage); err != nil {
					return err
				}
			}

			img, err := withSpinner("Generating scene...", func() (models.GeneratedImage, error) {
				return current.studio.GenerateScene(ctx, images, opts)
			})
			if err != nil {
				return err
			}
			return saveResult(img, out)
		},
	}

	f := cmd.Flags()
	f.StringVar((*string)(&opts.RoomType), "room", string(models.RoomStudio), "Room or environment")
	f.StringVar(&opts.CustomPrompt, "prompt", "", "Extra scene details")
	f.StringVar((*string)(&opts.AspectRatio), "aspect", string(models.AspectSquare), "Aspect ratio (high fidelity only)")
	f.StringVar(&opts.FidelityMode, "fidelity", "standard", "standard or high")
	f.StringVar(&opts.AntiDuplicateStrength, "anti-duplicate", "", "Set to high to forbid invented parts")
	f.StringVar(&opts.ProductLabel, "label", "", "Product name")
	f.StringVar(&opts.ReferenceImage, "reference", "", "Style reference image")
	f.BoolVar(&opts.FullVisibilityMode, "group", false, "Keep every product fully visible")
	f.BoolVar(&opts.AlphaMode, "isolate", false, "Plain white background, no environment")
	f.Float64Var(&yaw, "yaw", 0, "Camera yaw in degrees")
	f.Float64Var(&pitch, "pitch", 0, "Camera pitch in degrees")
	f.IntVar(&lighting.Brightness, "brightness", 50, "Lighting brightness 0-100")
	f.IntVar(&lighting.Temperature, "temperature", 50, "Lighting temperature 0-100, warm above 50")
	f.BoolVar(&auto, "auto", false, "Detect the product and suggest a room")
	f.StringVarP(&out, "output", "o", "", "Output file")
	return cmd
}

func newAngleCmd() *cobra.Command {
	var (
		yaw, pitch float64
		detect     bool
		out        string
	)

	cmd := &cobra.Command{
		Use:   "angle <image>",
		Short: "Render the product from a new camera angle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			image, err := loadImage(ctx, args[0])
			if err != nil {
				return err
			}

			if detect {
				angle, _ := withSpinner("Estimating camera angle...", func() (models.Angle, error) {
					return current.studio.DetectAngle(ctx, image), nil
				})
				color.Cyan("Yaw %v°, Pitch %v°", angle.Yaw, angle.Pitch)
				return nil
			}

			img, err := withSpinner("Synthesizing view...", func() (models.GeneratedImage, error) {
				return current.studio.GenerateAngleView(ctx, image, yaw, pitch)
			})
			if err != nil {
				return err
			}
			return saveResult(img, out)
		},
	}

	cmd.Flags().Float64Var(&yaw, "yaw", 0, "Target yaw in degrees (0-360)")
	cmd.Flags().Float64Var(&pitch, "pitch", 0, "Target pitch in degrees (-90 to 90)")
	cmd.Flags().BoolVar(&detect, "detect", false, "Only estimate the current camera angle")
	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file")
	return cmd
}

func newUpscaleCmd() *cobra.Command {
	var (
		opts models.UpscaleOptions
		out  string
	)

	cmd := &cobra.Command{
		Use:   "upscale <image>...",
		Short: "Upscale one or more images",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			images, err := loadImages(ctx, args)
			if err != nil {
				return err
			}

			if len(images) == 1 {
				img, err := withSpinner("Upscaling...", func() (models.GeneratedImage, error) {
					return current.studio.Upscale(ctx, images[0], opts)
				})
				if err != nil {
					return err
				}
				return saveResult(img, out)
			}

			results, err := withSpinner(fmt.Sprintf("Upscaling %d images...", len(images)), func() ([]models.GeneratedImage, error) {
				return current.studio.BatchUpscale(ctx, images, opts)
			})
			for _, img := range results {
				if saveErr := saveResult(img, ""); saveErr != nil {
					return saveErr
				}
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.ScaleFactor, "scale", "2x", "Scale factor: 2x, 4x, 6x or 8x")
	f.StringVar(&opts.Model, "model", "High Fidelity", "Upscale style")
	f.IntVar(&opts.Creativity, "creativity", 1, "Creativity level")
	f.IntVar(&opts.Sharpen, "sharpen", 50, "Sharpen percentage")
	f.IntVar(&opts.Denoise, "denoise", 30, "Denoise percentage")
	f.BoolVar(&opts.FaceRecovery, "faces", false, "Enhance faces")
	f.BoolVar(&opts.TextRecovery, "text", false, "Enhance text clarity")
	f.StringVar(&opts.CustomPrompt, "prompt", "", "Extra instructions")
	f.StringVarP(&out, "output", "o", "", "Output file (single image only)")
	return cmd
}

func newEditCmd() *cobra.Command {
	var (
		opts    models.EditOptions
		sources []string
		out     string
	)

	cmd := &cobra.Command{
		Use:   "edit <image>",
		Short: "Edit an image from an instruction, or remove its background",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !opts.RemoveBg && opts.Instruction == "" {
				return fmt.Errorf("an instruction is required unless --remove-bg is set")
			}

			image, err := loadImage(ctx, args[0])
			if err != nil {
				return err
			}
			if opts.MaskImage != "" {
				if opts.MaskImage, err = loadImage(ctx, opts.MaskImage); err != nil {
					return err
				}
			}
			if opts.SourceImages, err = loadImages(ctx, sources); err != nil {
				return err
			}

			img, err := withSpinner("Editing...", func() (models.GeneratedImage, error) {
				return current.studio.Edit(ctx, image, opts)
			})
			if err != nil {
				return err
			}
			return saveResult(img, out)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.Instruction, "instruction", "i", "", "What to change")
	f.StringVar(&opts.MaskImage, "mask", "", "PNG mask for inpainting")
	f.BoolVar(&opts.TextEditMode, "text", false, "Replace text in the image")
	f.BoolVar(&opts.RemoveBg, "remove-bg", false, "Remove the background")
	f.StringSliceVar(&sources, "source", nil, "Original source images for reference")
	f.StringVarP(&out, "output", "o", "", "Output file")
	return cmd
}

func newStyleCmd() *cobra.Command {
	var (
		opts models.StyleOptions
		list bool
		out  string
	)

	cmd := &cobra.Command{
		Use:   "style <image>",
		Short: "Apply a style preset to an image",
		Args: func(cmd *cobra.Command, args []string) error {
			if list {
				return nil
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				for _, p := range studio.StylePresets() {
					fmt.Printf("%-28s %s\n", p.ID, p.Name)
				}
				return nil
			}

			ctx := cmd.Context()
			image, err := loadImage(ctx, args[0])
			if err != nil {
				return err
			}
			if opts.ReferenceImage != "" {
				if opts.ReferenceImage, err = loadImage(ctx, opts.ReferenceImage); err != nil {
					return err
				}
			}

			img, err := withSpinner("Applying style...", func() (models.GeneratedImage, error) {
				return current.studio.StyleTransfer(ctx, image, opts)
			})
			if err != nil {
				return err
			}
			return saveResult(img, out)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Preset, "preset", "Soft Minimalist", "Style preset")
	f.StringVar(&opts.CustomPrompt, "prompt", "", "Extra style instructions")
	f.StringVar(&opts.ReferenceImage, "reference", "", "Style reference image")
	f.BoolVar(&list, "list", false, "List the style presets")
	f.StringVarP(&out, "output", "o", "", "Output file")
	return cmd
}

func newVectorizeCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "vectorize <image>",
		Short: "Trace an image into SVG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			image, err := loadImage(ctx, args[0])
			if err != nil {
				return err
			}

			svg, _ := withSpinner("Tracing...", func() (string, error) {
				return current.studio.Vectorize(ctx, image), nil
			})
			if svg == "" {
				return fmt.Errorf("failed to vectorize %s", args[0])
			}
			return writeText(out, svg)
		},
	}

	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file (stdout when empty)")
	return cmd
}

func writeText(path, text string) error {
	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	_, err := fmt.Fprintln(w, text)
	return err
}

func newAuditCmd() *cobra.Command {
	var heatmap string

	cmd := &cobra.Command{
		Use:   "audit <image>...",
		Short: "Critique a design and optionally render an attention heatmap",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			images, err := loadImages(ctx, args)
			if err != nil {
				return err
			}

			critique, err := withSpinner("Reviewing design...", func() (models.DesignCritique, error) {
				return current.studio.AnalyzeDesign(ctx, images)
			})
			if err != nil {
				return err
			}
			printCritique(critique)

			if heatmap == "" {
				return nil
			}
			url, err := withSpinner("Rendering heatmap...", func() (string, error) {
				return current.studio.Heatmap(ctx, images[0])
			})
			if err != nil {
				return err
			}
			if err := imageutil.WriteFile(heatmap, url); err != nil {
				return err
			}
			color.Green("✓ Heatmap saved to %s", heatmap)
			return nil
		},
	}

	cmd.Flags().StringVar(&heatmap, "heatmap", "", "Write a saliency heatmap of the first image to this file")
	return cmd
}

func printCritique(c models.DesignCritique) {
	score := color.New(color.FgGreen, color.Bold)
	if c.Score < 50 {
		score = color.New(color.FgRed, color.Bold)
	} else if c.Score < 75 {
		score = color.New(color.FgYellow, color.Bold)
	}
	score.Printf("\nScore: %.0f/100\n", c.Score)
	fmt.Printf("\n%s\n", c.Summary)

	sections := []struct {
		title string
		items []string
		c     *color.Color
	}{
		{"Strengths", c.Strengths, color.New(color.FgGreen)},
		{"Weaknesses", c.Weaknesses, color.New(color.FgRed)},
		{"Improvements", c.Improvements, color.New(color.FgCyan)},
	}
	for _, s := range sections {
		s.c.Printf("\n%s\n", s.title)
		for _, item := range s.items {
			fmt.Printf("  • %s\n", item)
		}
	}
}

func newVideoCmd() *cobra.Command {
	var (
		params studio.VideoParams
		out    string
	)

	cmd := &cobra.Command{
		Use:   "video <start-image> [end-image]",
		Short: "Animate a transition between frames and download the video",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, ok := studio.TransitionPresets[params.Preset]; params.Preset != "" && !ok {
				return fmt.Errorf("unknown preset %q", params.Preset)
			}

			var err error
			if params.Start, err = loadImage(ctx, args[0]); err != nil {
				return err
			}
			if len(args) == 2 {
				if params.End, err = loadImage(ctx, args[1]); err != nil {
					return err
				}
			}

			bar := getProgressBar(current.config.LLM.MaxPollAttempts, "Generating video...")
			img, err := current.studio.Interpolate(ctx, params, func(attempt, _ int) {
				bar.Set(attempt)
			})
			bar.Finish()
			fmt.Println()
			if err != nil {
				return err
			}

			if out == "" {
				out = fmt.Sprintf("video-%s.mp4", img.ID[:min(8, len(img.ID))])
			}
			return download(ctx, img.ResultURL, out)
		},
	}

	f := cmd.Flags()
	f.StringVar(&params.Preset, "preset", "smart-morph", "Transition preset")
	f.StringVar(&params.Prompt, "prompt", "", "Custom motion prompt (overrides the preset)")
	f.StringVarP(&out, "output", "o", "", "Output file")
	return cmd
}

// download streams url into path with a byte progress bar.
func download(ctx context.Context, url, path string) error {
	body, size, _, err := current.fetcher.Open(ctx, url)
	if err != nil {
		return err
	}
	defer body.Close()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bar := getProgressBar(int(size), "Downloading...")
	if _, err := io.Copy(io.MultiWriter(f, bar), body); err != nil {
		return fmt.Errorf("failed to download video: %w", err)
	}
	bar.Finish()
	color.Green("\n✓ Video saved to %s", path)
	return nil
}

func newHistoryCmd() *cobra.Command {
	var (
		clear  bool
		export string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List or clear generated results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if clear {
				current.state.ClearHistory(cmd.Context())
				color.Green("✓ History cleared")
				return nil
			}

			gallery := current.state.Snapshot().GenImg
			if export != "" {
				for _, img := range gallery {
					if img.Type == models.TypeVideo {
						continue
					}
					if err := saveResult(img, ""); err != nil {
						return err
					}
				}
				return nil
			}

			if len(gallery) == 0 {
				color.Yellow("No generated results yet")
				return nil
			}
			for _, img := range gallery {
				fmt.Printf("%s  %-15s %-40s %s\n",
					color.CyanString(img.ID[:min(8, len(img.ID))]),
					img.Type,
					img.Prompt,
					color.HiBlackString(img.ModelUsed))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&clear, "clear", false, "Clear the history")
	cmd.Flags().StringVar(&export, "export", "", "Set to any value to save every image result to the current directory")
	return cmd
}
