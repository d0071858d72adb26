package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"serenote/internal/app"
	"serenote/internal/bot"
	"serenote/internal/config"
	"serenote/internal/db"
	"serenote/internal/discord"
	"serenote/internal/domain"
	"serenote/internal/engine"
	"serenote/internal/logging"
	"serenote/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "serenote",
	Short: "Serenote task bot",
	Long: `Serenote keeps a team's to-do list inside a Discord channel.
- Create: "+task @ada @ops Ship release\nchangelog and tag" posts a task panel and assigns it.
- Complete: react with the complete emoji to check a task off; remove the reaction to reopen it.
- Delete: the author, an assignee, or a holder of an assigned role can react with the delete emoji.
- List: "+tasks" shows your open and completed tasks.
- Workspace: .serenote holds the SQLite database; serenote.yml holds emoji, colours, store and webhooks.
- Event log: every create/complete/reopen/delete is journaled, view with 'serenote log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "warning: .env:", err)
	}
	viper.SetEnvPrefix("SERENOTE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("token", "", "Discord bot token")
	rootCmd.PersistentFlags().String("jwt-secret", "", "HMAC secret for API bearer tokens")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
	_ = viper.BindPFlag("jwt-secret", rootCmd.PersistentFlags().Lookup("jwt-secret"))
}

func registerCommands() {
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(consoleCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(tokenCmd())
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to Discord and serve commands and reactions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return withWorkspace(ctx, func(ctx context.Context, ws *app.Workspace, log *logrus.Logger) error {
				client, err := discord.Open(ctx, viper.GetString("token"), log)
				if err != nil {
					return err
				}
				defer client.Close()
				e := engine.New(ws.Store, client.Messenger, ws.Config)
				e.SelfID = client.SelfID()
				e.Log = log
				server.StartWebhookDispatcher(ctx, e, log)
				err = bot.New(e, log).Run(ctx, client.Events())
				if errors.Is(err, context.Canceled) {
					log.Info("shutting down")
					return nil
				}
				return err
			})
		},
	}
	return cmd
}

func consoleCmd() *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "console",
		Short: "Drive the bot from stdin without Discord",
		Long: `Lines are posted as chat messages from the current user. Extra verbs:
  react <message-id> <emoji>     add a reaction
  unreact <message-id> <emoji>   remove a reaction
  delete <message-id>            delete a message
  as <user-id> [role-id...]      switch the current user`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace, log *logrus.Logger) error {
				c := newConsole(ws.Store, ws.Config, log, user)
				return c.Run(ctx, os.Stdin, os.Stdout)
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "local-user", "user id posting console messages")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	var devLogin bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return withWorkspace(ctx, func(ctx context.Context, ws *app.Workspace, log *logrus.Logger) error {
				authCfg := server.AuthConfig{JWTSecret: viper.GetString("jwt-secret"), EnableDevLogin: devLogin}
				if authCfg.JWTSecret == "" {
					return fmt.Errorf("SERENOTE_JWT_SECRET is required for bearer auth")
				}
				e := engine.New(ws.Store, nil, ws.Config)
				e.Log = log
				handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg, Log: log})
				if err != nil {
					return err
				}
				server.StartWebhookDispatcher(ctx, e, log)
				srv := &http.Server{Addr: addr, Handler: handler}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				fmt.Printf("Serving Serenote API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	cmd.Flags().BoolVar(&devLogin, "dev-login", false, "enable POST /auth/dev/login")
	return cmd
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show task counts per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				tasks, err := e.FindTasks(ctx, domain.TaskFilter{})
				if err != nil {
					return err
				}
				counts := map[string]int{string(domain.StatusOpen): 0, string(domain.StatusCompleted): 0}
				for _, t := range tasks {
					counts[string(t.Status)]++
				}
				if viper.GetBool("json") {
					return printJSON(counts)
				}
				statuses := make([]string, 0, len(counts))
				for s := range counts {
					statuses = append(statuses, s)
				}
				sort.Strings(statuses)
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Status", "Tasks"})
				for _, s := range statuses {
					tw.AppendRow(table.Row{s, counts[s]})
				}
				tw.AppendFooter(table.Row{"total", len(tasks)})
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func taskCmd() *cobra.Command {
	task := &cobra.Command{
		Use:   "task",
		Short: "Inspect stored tasks",
	}
	task.AddCommand(taskListCmd())
	task.AddCommand(taskShowCmd())
	return task
}

func taskListCmd() *cobra.Command {
	var f domain.TaskFilter
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			if status != "" {
				f.Status = domain.Status(status)
				if f.Status != domain.StatusOpen && f.Status != domain.StatusCompleted {
					return fmt.Errorf("invalid status %q (want open or completed)", status)
				}
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				tasks, err := e.FindTasks(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Message", "Title", "Status", "Assignees", "Created"})
				for _, t := range tasks {
					tw.AppendRow(table.Row{t.MessageID, t.Title, t.Status, strings.Join(assigneeLabels(t), ", "), t.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.AssigneeID, "assignee", "", "assigned user id")
	cmd.Flags().StringVar(&status, "status", "", "open or completed")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "maximum tasks")
	return cmd
}

func taskShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <message-id>",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.GetTask(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	return cmd
}

func logCmd() *cobra.Command {
	l := &cobra.Command{
		Use:   "log",
		Short: "Inspect the event log",
	}
	l.AddCommand(logTailCmd())
	return l
}

func logTailCmd() *cobra.Command {
	var f domain.EventFilter
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				events, err := e.ListEvents(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(events)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "TS", "Type", "Message", "Actor", "Payload"})
				for _, evt := range events {
					tw.AppendRow(table.Row{evt.ID, evt.TS, evt.Type, evt.MessageID, evt.ActorID, evt.Payload})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&f.Limit, "n", "n", 20, "number of events")
	cmd.Flags().StringVar(&f.Type, "type", "", "event type filter")
	cmd.Flags().StringVar(&f.MessageID, "message-id", "", "task message id")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Manage serenote.yml",
		Long:  "serenote.yml sets the command prefix, reaction emoji, panel colours, the store driver, webhooks and logging. Missing files fall back to defaults.",
	}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default serenote.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			} else if !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	return cmd
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show loaded config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSONOrTable(cfg)
		},
	}
	return cmd
}

func configValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate serenote.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err == nil {
				err = cfg.Validate()
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
	return cmd
}

func tokenCmd() *cobra.Command {
	var user string
	var perms []string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an API bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if user == "" {
				return fmt.Errorf("--user is required")
			}
			token, err := server.SignToken(viper.GetString("jwt-secret"), user, perms, ttl)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{"token": token, "expires_in": int(ttl.Seconds())})
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "Discord user id")
	cmd.Flags().StringSliceVar(&perms, "perm", nil, "permission to grant (repeatable)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

// --- helpers ---

func withWorkspace(ctx context.Context, fn func(context.Context, *app.Workspace, *logrus.Logger) error) error {
	ws, err := app.OpenWorkspace(ctx, viper.GetString("workspace"))
	if err != nil {
		return err
	}
	defer ws.Close()
	log, err := logging.New(ws.Config.Log)
	if err != nil {
		return err
	}
	return fn(ctx, ws, log)
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	return withWorkspace(ctx, func(ctx context.Context, ws *app.Workspace, log *logrus.Logger) error {
		e := engine.New(ws.Store, nil, ws.Config)
		e.Log = log
		return fn(ctx, e)
	})
}

func assigneeLabels(t domain.Task) []string {
	labels := make([]string, 0, len(t.AssigneeIDs)+len(t.AssigneeRoleIDs))
	labels = append(labels, t.AssigneeIDs...)
	for _, r := range t.AssigneeRoleIDs {
		labels = append(labels, "role:"+r)
	}
	return labels
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
