package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/slack-go/slack"
	"github.com/urfave/cli/v2"

	"github.com/quarterdeck/internal/config"
	"github.com/quarterdeck/internal/store"
	"github.com/quarterdeck/internal/store/postgres"
)

// MacroCommand returns the macro command for managing canned responses.
func MacroCommand() *cli.Command {
	return &cli.Command{
		Name:  "macro",
		Usage: "Manage canned responses",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List all macros",
				Action: runMacroList,
			},
			{
				Name:  "create",
				Usage: "Create a macro",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "name",
						Usage:    "Name staff type after the ? prefix",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "text",
						Usage: "Plain message text (rendered as a single section block)",
					},
					&cli.StringFlag{
						Name:  "message-file",
						Usage: "Path to a JSON file holding the Block Kit block to post",
					},
					&cli.StringFlag{
						Name:  "owner",
						Usage: "Slack user ID of the macro's owner",
					},
					&cli.BoolFlag{
						Name:  "close",
						Usage: "Also resolve the request when the macro runs",
					},
				},
				Action: runMacroCreate,
			},
		},
	}
}

func runMacroList(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := postgres.NewPool(c.Context, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	macros, err := postgres.New(pool).ListMacros(c.Context, "")
	if err != nil {
		return fmt.Errorf("failed to list macros: %w", err)
	}

	if len(macros) == 0 {
		fmt.Println("No macros defined")
		return nil
	}
	for _, m := range macros {
		closes := ""
		if m.Close {
			closes = " (closes request)"
		}
		owner := m.OwnerSlackID
		if owner == "" {
			owner = "unowned"
		}
		fmt.Printf("?%s%s  owner: %s\n", m.Name, closes, owner)
	}
	return nil
}

func runMacroCreate(c *cli.Context) error {
	message, err := macroMessage(c)
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := postgres.NewPool(c.Context, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	m := &store.Macro{
		Name:         c.String("name"),
		Message:      message,
		Close:        c.Bool("close"),
		OwnerSlackID: c.String("owner"),
	}
	if err := postgres.New(pool).CreateMacro(c.Context, m); err != nil {
		return fmt.Errorf("failed to create macro: %w", err)
	}

	fmt.Printf("Created macro ?%s\n", m.Name)
	return nil
}

// macroMessage builds the stored Block Kit block from --message-file or
// --text, exactly one of which must be given.
func macroMessage(c *cli.Context) (json.RawMessage, error) {
	path, text := c.String("message-file"), c.String("text")
	switch {
	case path != "" && text != "":
		return nil, fmt.Errorf("use either --text or --message-file, not both")
	case path != "":
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read message file: %w", err)
		}
		if !json.Valid(raw) {
			return nil, fmt.Errorf("message file %s is not valid JSON", path)
		}
		return raw, nil
	case text != "":
		block := slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, nil)
		raw, err := json.Marshal(block)
		if err != nil {
			return nil, fmt.Errorf("failed to encode message block: %w", err)
		}
		return raw, nil
	default:
		return nil, fmt.Errorf("one of --text or --message-file is required")
	}
}
