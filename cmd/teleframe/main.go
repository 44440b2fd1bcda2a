package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"teleframe/internal/app"
	"teleframe/internal/config"
	"teleframe/internal/frame"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a FrameApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "Add", "Browse").
func newApp(operation string) (*app.FrameApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewFrameApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	switch a.LoadStatus() {
	case frame.LoadBackup, frame.LoadRecovered, frame.LoadReset:
		fmt.Fprintf(os.Stderr, "Warning: catalog loaded via %s\n", a.LoadStatus())
	}

	return a, nil
}

func parseIndex(arg string) (int, error) {
	idx, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid index %q", arg)
	}
	return idx, nil
}

var rootCmd = &cobra.Command{
	Use:   "teleframe",
	Short: "Digital picture frame catalog",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Get application defaults
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		// Create config with defaults
		cfg := config.NewConfig(defaults["base_dir"])

		// Initialize config file
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Image Folder: %s\n", cfg.ImageFolder)
		fmt.Printf("Image Count:  %d\n", cfg.ImageCount)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Get application defaults
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		// Read config
		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		metadataPath := cfg.Storage.MetadataPath
		if metadataPath == "" {
			metadataPath = "(default)"
		}

		// Display config
		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Image Folder:  %s\n", cfg.ImageFolder)
		fmt.Printf("Image Count:   %d\n", cfg.ImageCount)
		fmt.Printf("Order:         %s\n", cfg.Order)
		fmt.Printf("Auto Delete:   %v\n", cfg.AutoDeleteImages)
		fmt.Printf("Show Videos:   %v\n", cfg.ShowVideos)
		fmt.Printf("Storage:       %s\n", cfg.Storage.Type)
		fmt.Printf("Metadata Path: %s\n", metadataPath)
		fmt.Printf("Log Dir:       %s\n", cfg.LogDir)
		fmt.Printf("Optimize:      %v\n", cfg.Media.OptimizeImages)
		return nil
	},
}

// add command
var addCmd = &cobra.Command{
	Use:   "add PATH...",
	Short: "Add media files to the catalog",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sender, _ := cmd.Flags().GetString("sender")
		caption, _ := cmd.Flags().GetString("caption")
		chatID, _ := cmd.Flags().GetInt64("chat-id")
		chatName, _ := cmd.Flags().GetString("chat-name")
		messageID, _ := cmd.Flags().GetInt64("message-id")
		noOptimize, _ := cmd.Flags().GetBool("no-optimize")

		a, err := newApp("Add")
		if err != nil {
			return err
		}
		defer a.Close()

		for _, path := range args {
			entry, err := a.Ingest(path, sender, caption, chatID, chatName, messageID, !noOptimize)
			if err != nil {
				if errors.Is(err, frame.ErrDuplicate) {
					fmt.Printf("Skipped %s: already in the catalog\n", path)
					continue
				}
				return fmt.Errorf("adding %s: %w", path, err)
			}
			fmt.Printf("Added %s\n", entry.Path)
		}
		return nil
	},
}

// list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List cataloged entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("List")
		if err != nil {
			return err
		}
		defer a.Close()

		entries := a.Entries()
		if len(entries) == 0 {
			fmt.Println("Catalog is empty.")
			return nil
		}

		for i, e := range entries {
			star := " "
			if e.Starred {
				star = "*"
			}
			unseen := " "
			if e.Unseen {
				unseen = "N"
			}
			fmt.Printf("%3d  %s%s  %s  %-12s  %s\n",
				i,
				star,
				unseen,
				e.Timestamp.Format("2006-01-02 15:04:05"),
				e.Sender,
				e.Path,
			)
		}
		return nil
	},
}

// star command
var starCmd = &cobra.Command{
	Use:   "star INDEX",
	Short: "Toggle the star flag of an entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := parseIndex(args[0])
		if err != nil {
			return err
		}

		a, err := newApp("ToggleStar")
		if err != nil {
			return err
		}
		defer a.Close()

		ok, err := a.ToggleStar(idx)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no entry at index %d", idx)
		}

		entries := a.Entries()
		state := "unstarred"
		if entries[idx].Starred {
			state = "starred"
		}
		fmt.Printf("Entry %d %s: %s\n", idx, state, entries[idx].Path)
		return nil
	},
}

// rm command
var rmCmd = &cobra.Command{
	Use:   "rm INDEX",
	Short: "Delete an entry and its media file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := parseIndex(args[0])
		if err != nil {
			return err
		}

		a, err := newApp("Remove")
		if err != nil {
			return err
		}
		defer a.Close()

		ok, err := a.Remove(idx)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no entry at index %d", idx)
		}

		fmt.Printf("Deleted entry %d\n", idx)
		return nil
	},
}

// seen command
var seenCmd = &cobra.Command{
	Use:   "seen [INDEX...]",
	Short: "Mark entries as seen",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if !all && len(args) == 0 {
			return fmt.Errorf("specify indices or --all")
		}

		a, err := newApp("MarkSeen")
		if err != nil {
			return err
		}
		defer a.Close()

		var count int
		if all {
			count, err = a.MarkAllSeen()
		} else {
			indices := make([]int, 0, len(args))
			for _, arg := range args {
				idx, err := parseIndex(arg)
				if err != nil {
					return err
				}
				indices = append(indices, idx)
			}
			count, err = a.MarkManySeen(indices)
		}
		if err != nil {
			return err
		}

		fmt.Printf("Marked %d entry(ies) seen\n", count)
		return nil
	},
}

// reset-unseen command
var resetUnseenCmd = &cobra.Command{
	Use:   "reset-unseen",
	Short: "Return every entry to unseen",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ResetUnseen")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.ResetUnseen(); err != nil {
			return err
		}

		fmt.Printf("Reset %d entry(ies) to unseen\n", a.Stats().Total)
		return nil
	},
}

// stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "View catalog statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Stats")
		if err != nil {
			return err
		}
		defer a.Close()

		s := a.Stats()
		fmt.Printf("Total:   %d\n", s.Total)
		fmt.Printf("Seen:    %d\n", s.Seen)
		fmt.Printf("Unseen:  %d\n", s.Unseen)
		fmt.Printf("Viewed:  %.1f%%\n", s.SeenPercent)
		return nil
	},
}

// verify command
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check cataloged entries against their media files",
	RunE: func(cmd *cobra.Command, args []string) error {
		deep, _ := cmd.Flags().GetBool("deep")

		a, err := newApp("Verify")
		if err != nil {
			return err
		}
		defer a.Close()

		problems := a.Verify(deep)
		if len(problems) == 0 {
			fmt.Printf("All %d entry(ies) verified.\n", a.Stats().Total)
			return nil
		}

		for _, p := range problems {
			fmt.Printf("%3d  %s: %s\n", p.Index, p.Path, p.Problem)
		}
		return fmt.Errorf("%d problem(s) found", len(problems))
	},
}

// browse command
var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Step through the catalog interactively",
	RunE: func(cmd *cobra.Command, args []string) error {
		order, _ := cmd.Flags().GetString("order")
		markSeen, _ := cmd.Flags().GetBool("mark-seen")

		a, err := newApp("Browse")
		if err != nil {
			return err
		}
		defer a.Close()

		if order != "" {
			if err := a.SetOrder(order); err != nil {
				return err
			}
		}

		slide, ok := a.Current()
		if !ok {
			fmt.Println("Catalog is empty.")
			return nil
		}

		fd := int(os.Stdin.Fd())
		oldState, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("entering raw mode: %w", err)
		}
		defer term.Restore(fd, oldState)

		fmt.Print("n: next  p: previous  s: star  d: delete  q: quit\r\n")
		showSlide(a, slide, markSeen)

		buf := make([]byte, 1)
		for {
			if _, err := os.Stdin.Read(buf); err != nil {
				return nil
			}
			switch buf[0] {
			case 'n', ' ':
				if slide, ok = a.Advance(); ok {
					showSlide(a, slide, markSeen)
				}
			case 'p':
				if slide, ok = a.Retreat(); ok {
					showSlide(a, slide, markSeen)
				}
			case 's':
				if _, err := a.ToggleStar(slide.Index); err != nil {
					return err
				}
				if slide, ok = a.Current(); ok {
					showSlide(a, slide, false)
				}
			case 'd':
				if _, err := a.Remove(slide.Index); err != nil {
					return err
				}
				if slide, ok = a.Current(); !ok {
					fmt.Print("Catalog is empty.\r\n")
					return nil
				}
				showSlide(a, slide, markSeen)
			case 'q', 3: // ctrl-c
				return nil
			}
		}
	},
}

// showSlide prints one slide line in raw terminal mode and, when enabled,
// marks the displayed entry seen.
func showSlide(a *app.FrameApp, slide app.Slide, markSeen bool) {
	star := ""
	if slide.Entry.Starred {
		star = " *"
	}
	caption := ""
	if slide.Entry.Caption != "" {
		caption = "  " + slide.Entry.Caption
	}
	fmt.Printf("[%d/%d]%s %s  (%s)%s\r\n",
		slide.Index+1,
		a.Stats().Total,
		star,
		slide.Entry.Path,
		slide.Entry.Sender,
		caption,
	)

	if markSeen && slide.Entry.Unseen {
		a.MarkSeen(slide.Index)
	}
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringP("sender", "s", "", "Sender name recorded with the entry")
	addCmd.Flags().StringP("caption", "c", "", "Caption recorded with the entry")
	addCmd.Flags().Int64("chat-id", 0, "Originating chat ID")
	addCmd.Flags().String("chat-name", "", "Originating chat name")
	addCmd.Flags().Int64("message-id", 0, "Originating message ID")
	addCmd.Flags().Bool("no-optimize", false, "Store the file as-is without display optimization")
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(starCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(seenCmd)
	seenCmd.Flags().BoolP("all", "a", false, "Mark every entry seen")
	rootCmd.AddCommand(resetUnseenCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().Bool("deep", false, "Re-hash file contents against recorded digests")
	rootCmd.AddCommand(browseCmd)
	browseCmd.Flags().StringP("order", "o", "", "Display order for this session (random, latest, oldest, sequential)")
	browseCmd.Flags().Bool("mark-seen", true, "Mark displayed entries seen")
}
