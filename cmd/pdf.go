package main

import (
	"bufio"
	"fmt"
	"image"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xhad/studio/internal/models"
	"github.com/xhad/studio/pkg/processor"
	"github.com/xhad/studio/pkg/render"
)

func newPDFCmd() *cobra.Command {
	var visual bool

	cmd := &cobra.Command{
		Use:   "pdf <file.pdf>...",
		Short: "Chat with one or more PDF documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			docs := make([]models.Document, 0, len(args))
			files := make([]*processor.PDF, 0, len(args))
			bar := getProgressBar(len(args), "Extracting documents...")
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", path, err)
				}
				doc, file, err := current.docs.Extract(path, data)
				if err != nil {
					return err
				}
				docs = append(docs, doc)
				files = append(files, file)
				bar.Add(1)
			}
			bar.Finish()
			color.Green("\n✓ Loaded %d documents\n", len(docs))

			color.Cyan("\nChat with your documents (type 'exit' to quit, ':visual' to toggle page images, ':region <doc> <page> <x> <y> <w> <h>' to upscale an area)")

			scanner := bufio.NewScanner(os.Stdin)
			userPrompt := color.New(color.FgGreen).PrintfFunc()
			assistantPrompt := color.New(color.FgCyan).PrintfFunc()
			var history []models.ChatMessage

			for {
				userPrompt("\nYou: ")
				if !scanner.Scan() {
					break
				}

				query := strings.TrimSpace(scanner.Text())
				switch {
				case query == "":
					continue
				case strings.ToLower(query) == "exit":
					return nil
				case query == ":visual":
					visual = !visual
					color.Blue("Visual mode: %v", visual)
					continue
				case strings.HasPrefix(query, ":region"):
					if err := regionCommand(cmd, files, strings.Fields(query)[1:]); err != nil {
						color.Red("Error: %v\n", err)
					}
					continue
				}

				response, err := withSpinner("Thinking...", func() (string, error) {
					return current.studio.ChatWithDocuments(ctx, query, docs, history, visual)
				})
				if err != nil {
					color.Red("Error: %v\n", err)
					continue
				}
				assistantPrompt("Assistant: %s\n", response)

				history = append(history,
					models.ChatMessage{Role: models.RoleUser, Text: query},
					models.ChatMessage{Role: models.RoleModel, Text: response})
			}
			return scanner.Err()
		},
	}

	cmd.Flags().BoolVar(&visual, "visual", false, "Attach page images to every question")
	return cmd
}

// regionCommand renders a page and upscales the rectangle given in page pixels at scale 1.5.
func regionCommand(cmd *cobra.Command, files []*processor.PDF, args []string) error {
	if len(args) != 6 {
		return fmt.Errorf("usage: :region <doc> <page> <x> <y> <w> <h>")
	}
	n := make([]int, len(args))
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return fmt.Errorf("invalid number %q", a)
		}
		n[i] = v
	}
	if n[0] < 1 || n[0] > len(files) {
		return fmt.Errorf("document %d out of range", n[0])
	}

	ctx := cmd.Context()
	page, err := render.RenderPage(ctx, files[n[0]-1], n[1], 1.5)
	if err != nil {
		return err
	}
	rect := image.Rect(n[2], n[3], n[2]+n[4], n[3]+n[5])
	img, err := withSpinner("Upscaling region...", func() (models.GeneratedImage, error) {
		return current.studio.UpscaleRegion(ctx, page, n[1], rect)
	})
	if err != nil {
		return err
	}
	return saveResult(img, "")
}
