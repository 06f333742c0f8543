package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"mediadeck/internal/carousel"
	"mediadeck/models"
)

const carouselHelp = "keys: n next, p prev, <number> jump, h hover on/off, l/r swipe left/right, q quit"

func newCarouselCommand() *cobra.Command {
	var interval time.Duration
	command := &cobra.Command{
		Use:   "carousel",
		Short: "Rotate the homepage banners in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, settings, err := loadConfig()
			if err != nil {
				return err
			}
			c, err := openClient(afero.NewOsFs(), settings)
			if err != nil {
				return err
			}
			defer c.Close()

			items, err := c.Banners(cmd.Context())
			if err != nil {
				color.Red("banner unavailable: %v", err)
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no banners")
				return nil
			}
			return runCarousel(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), items, carousel.WithInterval(interval))
		},
	}
	command.Flags().DurationVar(&interval, "interval", carousel.DefaultInterval, "Auto-advance interval")
	return command
}

// runCarousel drives a controller from line-based keyboard input until the
// input ends or "q" is entered.
func runCarousel(ctx context.Context, in io.Reader, out io.Writer, items []models.BannerItem, opts ...carousel.Option) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ctrl := carousel.NewController(len(items), opts...)
	ctrl.OnChange(func(s carousel.State) {
		renderSlide(out, items, s)
	})

	done := make(chan error, 1)
	go func() { done <- ctrl.Run(ctx) }()

	fmt.Fprintln(out, carouselHelp)
	renderSlide(out, items, ctrl.State())

	hovered := false
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		switch key := strings.TrimSpace(scanner.Text()); key {
		case "q":
			cancel()
			<-done
			return nil
		case "n":
			ctrl.Next()
		case "p":
			ctrl.Prev()
		case "h":
			hovered = !hovered
			if hovered {
				ctrl.HoverStart()
			} else {
				ctrl.HoverEnd()
			}
		case "l":
			swipe(ctrl, -carousel.SwipeThreshold*2)
		case "r":
			swipe(ctrl, carousel.SwipeThreshold*2)
		default:
			if i, err := strconv.Atoi(key); err == nil {
				ctrl.Jump(i - 1)
			}
		}
	}
	cancel()
	<-done
	return scanner.Err()
}

// swipe replays a touch gesture moving dx pixels horizontally.
func swipe(ctrl *carousel.Controller, dx float64) {
	const startX = 400
	ctrl.TouchStart(startX)
	ctrl.TouchMove(startX + dx)
	ctrl.TouchEnd()
}

func renderSlide(out io.Writer, items []models.BannerItem, s carousel.State) {
	if s.Index < 0 || s.Index >= len(items) {
		return
	}
	item := items[s.Index]
	dots := make([]string, len(items))
	for i := range dots {
		dots[i] = "○"
		if i == s.Index {
			dots[i] = "●"
		}
	}
	status := ""
	if s.Phase == carousel.Paused {
		status = " (paused)"
	}
	color.New(color.Bold).Fprintf(out, "[%d/%d] %s%s\n", s.Index+1, len(items), item.Title, status)
	fmt.Fprintf(out, "  %s\n", strings.Join(dots, " "))
}
