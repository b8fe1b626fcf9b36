package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/evanschultz/lanes/internal/adapters/server"
	"github.com/evanschultz/lanes/internal/adapters/server/common"
	"github.com/evanschultz/lanes/internal/app"
	"github.com/evanschultz/lanes/internal/domain"
	"github.com/spf13/cobra"
)

// newRootCommand builds the command tree. Without a subcommand it opens the board.
func newRootCommand(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:     "lanes",
		Short:   "A three-lane kanban board for the dummyjson todos API",
		Version: version,
		RunE:    c.runTUI,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "path to config.toml")
	flags.StringVar(&c.dbPath, "db", "", "path to the local sqlite overlay")
	flags.StringVar(&c.appName, "app", "", "application name used for config and data dirs")
	flags.StringVar(&c.apiURL, "api-url", "", "todos API base URL")
	flags.BoolVar(&c.devMode, "dev", false, "use dev paths and the workspace dev log")

	root.AddCommand(
		c.pathsCommand(),
		c.listCommand(),
		c.addCommand(),
		c.editCommand(),
		c.moveCommand(),
		c.removeCommand(),
		c.activityCommand(),
		c.exportCommand(),
		c.importCommand(),
		c.resetCommand(),
		c.serveCommand(),
	)
	return root
}

func (c *cli) pathsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config and data paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths, opts, err := c.resolve(cmd)
			if err != nil {
				return fmt.Errorf("resolve paths: %w", err)
			}
			fmt.Fprintf(c.stdout, "app: %s\n", opts.AppName)
			fmt.Fprintf(c.stdout, "dev_mode: %t\n", opts.DevMode)
			fmt.Fprintf(c.stdout, "config: %s\n", paths.ConfigPath)
			fmt.Fprintf(c.stdout, "data_dir: %s\n", paths.DataDir)
			fmt.Fprintf(c.stdout, "db: %s\n", paths.DBPath)
			return nil
		},
	}
}

func (c *cli) listCommand() *cobra.Command {
	var (
		status  string
		offline bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the board as a table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var only domain.Status
			if strings.TrimSpace(status) != "" {
				parsed, err := domain.ParseStatus(status)
				if err != nil {
					return fmt.Errorf("--status %q: %w", status, err)
				}
				only = parsed
			}
			return c.withSession(cmd, false, func(ctx context.Context, s *session) error {
				var (
					board domain.Board
					err   error
				)
				if offline {
					board, err = s.svc.Board(ctx)
				} else {
					board, err = syncBoard(ctx, s)
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(c.stdout, renderBoardTable(board, only))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only print one lane (pending, in-progress, completed)")
	cmd.Flags().BoolVar(&offline, "offline", false, "print the cached board without contacting the API")
	return cmd
}

func (c *cli) addCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <text>",
		Short: "Add a todo to the in-progress lane",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.mutate(cmd, func(ctx context.Context, svc *app.Service) (app.Result, error) {
				return svc.CreateTodo(ctx, strings.Join(args, " "))
			})
		},
	}
}

func (c *cli) editCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <id> <text>",
		Short: "Replace the text of a todo",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTodoID(args[0])
			if err != nil {
				return err
			}
			return c.mutate(cmd, func(ctx context.Context, svc *app.Service) (app.Result, error) {
				return svc.EditTodo(ctx, id, strings.Join(args[1:], " "))
			})
		},
	}
}

func (c *cli) moveCommand() *cobra.Command {
	var index int
	cmd := &cobra.Command{
		Use:   "move <id> <status>",
		Short: "Move a todo to a lane, or to a slot within its lane",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTodoID(args[0])
			if err != nil {
				return err
			}
			status, err := domain.ParseStatus(args[1])
			if err != nil {
				return fmt.Errorf("status %q: %w", args[1], err)
			}
			return c.mutate(cmd, func(ctx context.Context, svc *app.Service) (app.Result, error) {
				return svc.DropTodo(ctx, app.DropInput{
					TodoID:    id,
					FromIndex: -1,
					ToStatus:  status,
					ToIndex:   index,
				})
			})
		},
	}
	cmd.Flags().IntVar(&index, "index", -1, "target slot in the lane (negative drops at the end)")
	return cmd
}

func (c *cli) removeCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a todo",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTodoID(args[0])
			if err != nil {
				return err
			}
			return c.mutate(cmd, func(ctx context.Context, svc *app.Service) (app.Result, error) {
				return svc.DeleteTodo(ctx, id)
			})
		},
	}
}

func (c *cli) activityCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Print recent board changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withSession(cmd, false, func(ctx context.Context, s *session) error {
				events, err := s.svc.ListActivity(ctx, limit)
				if err != nil {
					return fmt.Errorf("list activity: %w", err)
				}
				if len(events) == 0 {
					fmt.Fprintln(c.stdout, "no activity yet")
					return nil
				}
				for _, event := range events {
					line := fmt.Sprintf("%s  %-7s", event.OccurredAt.Local().Format("2006-01-02 15:04:05"), event.Operation)
					if event.TodoID > 0 {
						line += fmt.Sprintf("  #%d", event.TodoID)
					}
					if event.Summary != "" {
						line += "  " + event.Summary
					}
					fmt.Fprintln(c.stdout, line)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum events to print")
	return cmd
}

func (c *cli) exportCommand() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the local board as a JSON snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withSession(cmd, false, func(ctx context.Context, s *session) error {
				snap, err := s.svc.ExportSnapshot(ctx)
				if err != nil {
					return fmt.Errorf("export snapshot: %w", err)
				}
				encoded, err := snap.Encode()
				if err != nil {
					return fmt.Errorf("encode snapshot: %w", err)
				}
				encoded = append(encoded, '\n')

				out = strings.TrimSpace(out)
				if out == "" || out == "-" {
					_, err = c.stdout.Write(encoded)
					return err
				}
				if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
					return fmt.Errorf("create export dir: %w", err)
				}
				if err := os.WriteFile(out, encoded, 0o644); err != nil {
					return fmt.Errorf("write export file: %w", err)
				}
				s.logger.Info("snapshot exported", "path", out, "todos", len(snap.Todos))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&out, "out", "-", "output file (- for stdout)")
	return cmd
}

func (c *cli) importCommand() *cobra.Command {
	var in string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace the local board with a JSON snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in = strings.TrimSpace(in)
			if in == "" {
				return fmt.Errorf("--in is required")
			}
			var (
				content []byte
				err     error
			)
			if in == "-" {
				content, err = io.ReadAll(cmd.InOrStdin())
			} else {
				content, err = os.ReadFile(in)
			}
			if err != nil {
				return fmt.Errorf("read import file: %w", err)
			}
			snap, err := app.DecodeSnapshot(content)
			if err != nil {
				return fmt.Errorf("decode snapshot: %w", err)
			}
			return c.withSession(cmd, false, func(ctx context.Context, s *session) error {
				if err := s.svc.ImportSnapshot(ctx, snap); err != nil {
					return fmt.Errorf("import snapshot: %w", err)
				}
				fmt.Fprintf(c.stdout, "imported %d todos\n", len(snap.Todos))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "snapshot file to import (- for stdin)")
	return cmd
}

func (c *cli) resetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Drop local edits so the next load mirrors the API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withSession(cmd, false, func(ctx context.Context, s *session) error {
				if err := s.svc.ResetLocal(ctx); err != nil {
					return fmt.Errorf("reset local board: %w", err)
				}
				fmt.Fprintln(c.stdout, "local board cleared")
				return nil
			})
		},
	}
}

func (c *cli) serveCommand() *cobra.Command {
	var bind string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the board over HTTP and MCP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withSession(cmd, false, func(ctx context.Context, s *session) error {
				if _, err := syncBoard(ctx, s); err != nil {
					return err
				}
				cfg := server.Config{
					HTTPBind:      firstNonEmpty(bind, s.cfg.Serve.HTTPBind),
					APIEndpoint:   s.cfg.Serve.APIEndpoint,
					MCPEndpoint:   s.cfg.Serve.MCPEndpoint,
					ServerName:    s.opts.AppName,
					ServerVersion: version,
				}
				return server.Run(ctx, cfg, common.NewAppServiceAdapter(s.svc))
			})
		},
	}
	cmd.Flags().StringVar(&bind, "http", "", "listen address (defaults to serve.http_bind)")
	return cmd
}

// mutate syncs the board, applies one change and prints its notice.
func (c *cli) mutate(cmd *cobra.Command, fn func(context.Context, *app.Service) (app.Result, error)) error {
	return c.withSession(cmd, false, func(ctx context.Context, s *session) error {
		if _, err := syncBoard(ctx, s); err != nil {
			return err
		}
		result, err := fn(ctx, s.svc)
		if err != nil {
			if result.Notice.Empty() {
				return err
			}
			return fmt.Errorf("%s: %w", result.Notice.Message, err)
		}
		if !result.Notice.Empty() {
			fmt.Fprintln(c.stdout, result.Notice.Message)
		}
		if result.Todo.ID > 0 {
			fmt.Fprintf(c.stdout, "#%d %s [%s]\n", result.Todo.ID, result.Todo.Text, result.Todo.Status)
		}
		return nil
	})
}

// syncBoard loads the remote todos into the overlay, falling back to the cache when offline.
func syncBoard(ctx context.Context, s *session) (domain.Board, error) {
	load, err := s.svc.LoadBoard(ctx)
	if err != nil {
		return domain.Board{}, fmt.Errorf("load board: %w", err)
	}
	if load.Stale {
		s.logger.Warn("todos api unreachable; using the cached board")
	}
	return load.Board, nil
}

func parseTodoID(raw string) (int, error) {
	id, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(raw), "#"))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid todo id %q", raw)
	}
	return id, nil
}

// renderBoardTable prints every lane, or just one, as a rounded table.
func renderBoardTable(board domain.Board, only domain.Status) string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	rows := [][]string{{"ID", "LANE", "TODO", "OWNER", "ORIGIN"}}
	for _, lane := range board.Lanes {
		if only != "" && lane.Lane.Status != only {
			continue
		}
		for _, todo := range lane.Todos {
			rows = append(rows, []string{
				strconv.Itoa(todo.ID),
				lane.Lane.Title,
				todo.Text,
				strconv.Itoa(todo.UserID),
				string(todo.Origin),
			})
		}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("62"))).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == 0 {
				return headerStyle
			}
			return cellStyle
		})
	return t.Render()
}
