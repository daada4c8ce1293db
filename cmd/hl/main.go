package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"huntline/internal/blob"
	"huntline/internal/config"
	"huntline/internal/db"
	"huntline/internal/engine"
	"huntline/internal/migrate"
	"huntline/internal/repo"
	"huntline/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "hl",
	Short: "Huntline CLI",
	Long: `Huntline runs photo scavenger hunts.
Core concepts:
- Workspace: your .huntline directory holding the database and photo store.
- Hunt: an authored list of tasks a host can run any number of times.
- Started hunt: one live play session of a hunt, frozen as a snapshot at
  start time, joinable with a six-digit access code until it ends.
- Team: a group of players inside one session.
- Submission: a team's photo answer to a task, at most one per team and task.
- Event log: diary of lifecycle changes, view with 'hl log tail'.`,
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
	viper.SetEnvPrefix("HUNTLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(hostCmd())
	rootCmd.AddCommand(huntCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(sessionCmd())
	rootCmd.AddCommand(teamCmd())
	rootCmd.AddCommand(submissionCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Manage config"}
	cfg.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a default huntline.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			return os.WriteFile(path, []byte(config.GenerateDefault()), 0o644)
		},
	})
	cfg.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			if cfg == nil {
				cfg = config.Default()
			}
			return printJSONOrTable(cfg)
		},
	})
	return cfg
}

func hostCmd() *cobra.Command {
	host := &cobra.Command{Use: "host", Short: "Manage hosts"}
	var name string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a host",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				h, err := e.CreateHost(ctx, name)
				if err != nil {
					return err
				}
				return printJSONOrTable(h)
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "host name")
	_ = create.MarkFlagRequired("name")
	host.AddCommand(create)
	host.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Show a host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				h, err := e.GetHost(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(h)
			})
		},
	})
	return host
}

func huntCmd() *cobra.Command {
	hunt := &cobra.Command{Use: "hunt", Short: "Manage hunts"}
	hunt.AddCommand(huntCreateCmd())
	hunt.AddCommand(huntShowCmd())
	hunt.AddCommand(huntListCmd())
	hunt.AddCommand(huntDeleteCmd())
	hunt.AddCommand(huntStartCmd())
	return hunt
}

func huntCreateCmd() *cobra.Command {
	var hostID, name, desc string
	var est int
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a hunt",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				h, err := e.CreateHunt(ctx, hostID, name, desc, est)
				if err != nil {
					return err
				}
				return printJSONOrTable(h)
			})
		},
	}
	cmd.Flags().StringVar(&hostID, "host", "", "host id")
	cmd.Flags().StringVar(&name, "name", "", "hunt name")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	cmd.Flags().IntVar(&est, "est", 0, "estimated minutes")
	_ = cmd.MarkFlagRequired("host")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func huntShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a hunt with its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				ch, err := e.GetCompleteHunt(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(ch)
			})
		},
	}
}

func huntListCmd() *cobra.Command {
	var hostID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a host's hunts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				hunts, err := e.ListHuntsByHost(ctx, hostID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(hunts)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Tasks", "Est"})
				for _, h := range hunts {
					tw.AppendRow(table.Row{h.ID, h.Name, h.NumberOfTasks, h.Est})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&hostID, "host", "", "host id")
	_ = cmd.MarkFlagRequired("host")
	return cmd
}

func huntDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a hunt and its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteHunt(ctx, args[0])
			})
		},
	}
}

func huntStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <hunt-id>",
		Short: "Start a session of a hunt",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.StartHunt(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(s)
				}
				fmt.Printf("Started hunt %s with access code %s\n", s.ID, s.AccessCode)
				return nil
			})
		},
		Args: cobra.ExactArgs(1),
	}
}

func taskCmd() *cobra.Command {
	task := &cobra.Command{Use: "task", Short: "Manage hunt tasks"}
	var huntID, name string
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a task to a hunt",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.AddTask(ctx, huntID, name)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	add.Flags().StringVar(&huntID, "hunt", "", "hunt id")
	add.Flags().StringVar(&name, "name", "", "task name")
	_ = add.MarkFlagRequired("hunt")
	_ = add.MarkFlagRequired("name")
	task.AddCommand(add)
	task.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteTask(ctx, args[0])
			})
		},
	})
	return task
}

func sessionCmd() *cobra.Command {
	session := &cobra.Command{Use: "session", Short: "Manage started hunts"}
	session.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Show a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.GetStartedHunt(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	})
	session.AddCommand(&cobra.Command{
		Use:   "join <access-code>",
		Short: "Resolve a session by access code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.JoinByAccessCode(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	})
	session.AddCommand(&cobra.Command{
		Use:   "end <id>",
		Short: "End a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.EndStartedHunt(ctx, args[0])
			})
		},
	})
	session.AddCommand(sessionListEndedCmd())
	session.AddCommand(sessionDeleteCmd())
	return session
}

func sessionListEndedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ended",
		Short: "List ended sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				list, err := e.ListEndedHunts(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(list)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Hunt", "Ended"})
				for _, s := range list {
					ended := ""
					if s.EndDate != nil {
						ended = *s.EndDate
					}
					tw.AppendRow(table.Row{s.ID, s.CompleteHunt.Hunt.Name, ended})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func sessionDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a session and everything attached to it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				report, err := e.DeleteStartedHunt(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(report)
			})
		},
	}
}

func teamCmd() *cobra.Command {
	team := &cobra.Command{Use: "team", Short: "Manage teams"}
	var startedHuntID string
	var num int
	add := &cobra.Command{
		Use:   "add",
		Short: "Bulk-create teams for a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				teams, err := e.CreateTeams(ctx, startedHuntID, num)
				if err != nil {
					return err
				}
				return printJSONOrTable(teams)
			})
		},
	}
	add.Flags().StringVar(&startedHuntID, "session", "", "started hunt id")
	add.Flags().IntVar(&num, "n", 1, "number of teams")
	_ = add.MarkFlagRequired("session")
	team.AddCommand(add)
	team.AddCommand(&cobra.Command{
		Use:   "list <started-hunt-id>",
		Short: "List a session's teams",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				teams, err := e.ListTeamsByStartedHunt(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(teams)
			})
		},
	})
	team.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a team",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteTeam(ctx, args[0])
			})
		},
	})
	return team
}

func submissionCmd() *cobra.Command {
	sub := &cobra.Command{Use: "submission", Short: "Inspect submissions"}
	sub.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Show a submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.GetSubmission(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	})
	sub.AddCommand(&cobra.Command{
		Use:   "list <started-hunt-id>",
		Short: "List a session's submissions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				list, err := e.ListSubmissionsByStartedHunt(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(list)
			})
		},
	})
	sub.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a submission and its photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteSubmission(ctx, args[0])
			})
		},
	})
	return sub
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Event log",
		Long:  "The diary of everything that happened: sessions started and ended, submissions, deletes.",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, entityKind, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				events, err := r.LatestEvents(ctx, n, evtType, entityKind, entityID)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			cfg, err := config.LoadOptional(workspace)
			if err != nil {
				return err
			}
			if cfg == nil {
				cfg = config.Default()
			}
			if !cmd.Flags().Changed("addr") {
				addr = cfg.Server.Addr
			}
			if !cmd.Flags().Changed("base-path") && cfg.Server.BasePath != "" {
				basePath = cfg.Server.BasePath
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			e := engine.New(conn, blob.NewStore(cfg.PhotosDir(workspace)))
			e.MaxTeams = cfg.Sessions.MaxTeams
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Huntline API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:4567", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/api", "API base path")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return err
	}
	if cfg == nil {
		cfg = config.Default()
	}
	e := engine.New(conn, blob.NewStore(cfg.PhotosDir(workspace)))
	e.MaxTeams = cfg.Sessions.MaxTeams
	return fn(ctx, e)
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
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
