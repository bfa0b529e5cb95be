package main

import (
	"errors"
	"fmt"
	"html"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/spf13/cobra"

	"github.com/eringen/pubsplice"
	"github.com/eringen/pubsplice/scaffold"
)

// scaffoldData holds the template variables passed to every scaffold template.
type scaffoldData struct {
	SiteName string
	BaseURL  string
	Author   string
}

var scaffoldFuncs = template.FuncMap{
	"escape": html.EscapeString,
}

func newInitCommand() *cobra.Command {
	var data scaffoldData

	cmd := &cobra.Command{
		Use:         "init [directory]",
		Short:       "Create a workspace with a config file, template, index and feed",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runInit(cmd, dir, data)
		},
	}

	cmd.Flags().StringVar(&data.SiteName, "name", "", "Site name (default derived from the directory)")
	cmd.Flags().StringVar(&data.BaseURL, "base-url", "https://example.com/", "Public address the site is served from")
	cmd.Flags().StringVar(&data.Author, "author", "", "Default byline")
	return cmd
}

func runInit(cmd *cobra.Command, dir string, data scaffoldData) error {
	out := cmd.OutOrStdout()

	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if _, err := os.Stat(filepath.Join(abs, pubsplice.ConfigFileName)); err == nil {
		return fmt.Errorf("%s already exists in %s", pubsplice.ConfigFileName, abs)
	}

	if data.SiteName == "" {
		data.SiteName = pubsplice.DeriveName(abs)
	}
	if !strings.HasSuffix(data.BaseURL, "/") {
		data.BaseURL += "/"
	}

	fmt.Fprintf(out, "Creating pubsplice workspace in %s\n\n", abs)

	root := "templates"

	err = fs.WalkDir(scaffold.Templates, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		// Compute the output path, stripping the .tmpl suffix.
		outPath := filepath.Join(abs, relPath)
		outPath = strings.TrimSuffix(outPath, ".tmpl")

		if d.IsDir() {
			return os.MkdirAll(outPath, 0o755)
		}
		if filepath.Base(outPath) == ".keep" {
			return nil
		}
		if _, err := os.Stat(outPath); err == nil {
			fmt.Fprintf(out, "  kept    %s\n", outPath)
			return nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}

		content, err := scaffold.Templates.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		tmpl, err := template.New(filepath.Base(path)).Funcs(scaffoldFuncs).Parse(string(content))
		if err != nil {
			return fmt.Errorf("parse template %s: %w", path, err)
		}

		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create %s: %w", outPath, err)
		}
		defer f.Close()

		if err := tmpl.Execute(f, data); err != nil {
			return fmt.Errorf("execute template %s: %w", path, err)
		}

		fmt.Fprintf(out, "  created %s\n", outPath)
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Done! Next steps:")
	fmt.Fprintln(out)
	if dir != "." {
		fmt.Fprintf(out, "  cd %s\n", dir)
	}
	fmt.Fprintln(out, "  pubsplice new --title \"Hello world\"")
	fmt.Fprintln(out, "  pubsplice publish")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Edit template.html to change how pages look; keep the <!-- OB --> marker where entries go.\n")
	return nil
}
