package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"repocket/pkg/device/store"
)

var (
	colorPrimary = lipgloss.Color("39")
	colorMuted   = lipgloss.Color("245")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	labelStyle = lipgloss.NewStyle().Foreground(colorMuted).Width(16)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	countStyle = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show tracked items and the last sync",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		printError("%v", err)
		return err
	}

	st, err := store.Load(store.Options{
		Root:              cfg.Device.Root,
		StatePath:         cfg.StatePath,
		FolderName:        cfg.Device.FolderName,
		ArchiveFolderName: cfg.Device.ArchiveFolderName,
	})
	if err != nil {
		printError("loading device store: %v", err)
		return err
	}

	lastSync := "never"
	if ts := st.Watermark(); ts > 0 {
		when := time.Unix(int64(ts), 0)
		lastSync = fmt.Sprintf("%s (%s)", humanize.Time(when), when.Format("2006-01-02 15:04"))
	}

	row := func(label, value string) {
		fmt.Println(labelStyle.Render(label) + valueStyle.Render(value))
	}
	count := func(label string, n int) {
		fmt.Println(labelStyle.Render(label) + countStyle.Render(fmt.Sprintf("%d", n)))
	}

	fmt.Println(titleStyle.Render("repocket status"))
	fmt.Println()
	row("Device root", cfg.Device.Root)
	row("Reading folder", fmt.Sprintf("%s (%s)", cfg.Device.FolderName, st.FolderID()))
	row("Archive folder", fmt.Sprintf("%s (%s)", cfg.Device.ArchiveFolderName, st.ArchiveID()))
	row("Format", cfg.Format)
	fmt.Println()
	count("On device", len(st.CurrentItems()))
	count("Read, unsynced", len(st.ReadItems()))
	count("Archived", len(st.ArchivedItems()))
	fmt.Println()
	row("Last sync", lastSync)
	row("State file", cfg.StatePath)
	return nil
}
