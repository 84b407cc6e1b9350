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

	"liftbay/internal/app"
	"liftbay/internal/config"
	"liftbay/internal/db"
	"liftbay/internal/domain"
	"liftbay/internal/engine"
	"liftbay/internal/migrate"
	"liftbay/internal/repo"
	"liftbay/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "lb",
	Short: "Liftbay CLI",
	Long: `Liftbay runs an elevator repair shop: elevators, repairs, staff, and stock.
- Workspace: the .liftbay directory holding the shop database; config lives in the DB.
- Elevators: the machines under the shop's care. One active repair per elevator.
- Repairs: Pending -> Approved -> InProgress -> Completed (Cancelled is an exit).
- Roles: clients schedule, receptionists approve and route, mechanics do the work,
  stock keepers mind the shelves, managers run the floor.
- Stock: consumables with reorder thresholds; 'lb stock low' lists what is short.
- Event log: diary of changes, view with 'lb log tail'.`,
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
	viper.SetEnvPrefix("LIFTBAY")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "acting actor identifier")
	rootCmd.PersistentFlags().String("actor-role", "Manager", "acting actor role")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
	_ = viper.BindPFlag("actor-role", rootCmd.PersistentFlags().Lookup("actor-role"))
}

func registerCommands() {
	rootCmd.AddCommand(elevatorCmd())
	rootCmd.AddCommand(repairCmd())
	rootCmd.AddCommand(stockCmd())
	rootCmd.AddCommand(actorCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Shop overview",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				elevators, err := r.ListElevators(ctx, "")
				if err != nil {
					return err
				}
				byStatus := map[string]int{}
				for _, el := range elevators {
					byStatus[el.Status]++
				}
				active, err := r.ListRepairs(ctx, repo.RepairFilters{Status: domain.RepairInProgress})
				if err != nil {
					return err
				}
				pending, err := r.ListRepairs(ctx, repo.RepairFilters{Status: domain.RepairPending})
				if err != nil {
					return err
				}
				low, err := r.ListLowConsumables(ctx)
				if err != nil {
					return err
				}
				out := map[string]any{
					"db":                  db.Path(workspace),
					"elevators":           byStatus,
					"repairs_pending":     len(pending),
					"repairs_in_progress": len(active),
					"stock_low":           len(low),
				}
				return printJSONOrTable(out)
			})
		},
	}
	return cmd
}

func elevatorCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "elevator", Short: "Manage elevators"}
	cmd.AddCommand(elevatorAddCmd())
	cmd.AddCommand(elevatorListCmd())
	cmd.AddCommand(elevatorBlockCmd())
	cmd.AddCommand(elevatorUnblockCmd())
	return cmd
}

func elevatorAddCmd() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Provision elevator",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				el, err := e.AddElevator(ctx, category, currentActor())
				if err != nil {
					return err
				}
				return printJSONOrTable(el)
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "elevator category")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func elevatorListCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List elevators",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListElevators(ctx, status)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Category", "Status"})
				for _, el := range items {
					tw.AppendRow(table.Row{el.ID, el.Category, el.Status})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	return cmd
}

func elevatorBlockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "block <id>",
		Short: "Block elevator for maintenance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				el, err := e.BlockElevator(ctx, args[0], currentActor())
				if err != nil {
					return err
				}
				return printJSONOrTable(el)
			})
		},
	}
	return cmd
}

func elevatorUnblockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unblock <id>",
		Short: "Return elevator to service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				el, err := e.UnblockElevator(ctx, args[0], currentActor())
				if err != nil {
					return err
				}
				return printJSONOrTable(el)
			})
		},
	}
	return cmd
}

func repairCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "repair", Short: "Manage repairs"}
	cmd.AddCommand(repairScheduleCmd())
	cmd.AddCommand(repairListCmd())
	cmd.AddCommand(repairShowCmd())
	cmd.AddCommand(repairApproveCmd())
	cmd.AddCommand(repairRescheduleCmd())
	cmd.AddCommand(repairAssignCmd())
	cmd.AddCommand(repairClaimCmd())
	cmd.AddCommand(repairUsageCmd())
	cmd.AddCommand(repairCompleteCmd())
	cmd.AddCommand(repairCancelCmd())
	return cmd
}

func repairScheduleCmd() *cobra.Command {
	var elevatorID, description, at string
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Schedule repair on an elevator",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rep, err := e.ScheduleRepair(ctx, engine.ScheduleOptions{
					ElevatorID:  elevatorID,
					Description: description,
					ScheduledAt: at,
				}, currentActor())
				if err != nil {
					return err
				}
				return printJSONOrTable(rep)
			})
		},
	}
	cmd.Flags().StringVar(&elevatorID, "elevator", "", "elevator id")
	cmd.Flags().StringVar(&description, "description", "", "problem description")
	cmd.Flags().StringVar(&at, "at", "", "scheduled time (RFC3339)")
	_ = cmd.MarkFlagRequired("elevator")
	_ = cmd.MarkFlagRequired("at")
	return cmd
}

func repairListCmd() *cobra.Command {
	var f repo.RepairFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List repairs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListRepairs(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Elevator", "Status", "Mechanic", "Scheduled"})
				for _, rep := range items {
					mechanic := ""
					if rep.MechanicID != nil {
						mechanic = *rep.MechanicID
					}
					tw.AppendRow(table.Row{rep.ID, rep.ElevatorID, rep.Status, mechanic, rep.ScheduledAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	cmd.Flags().StringVar(&f.ClientID, "client", "", "client filter")
	cmd.Flags().StringVar(&f.MechanicID, "mechanic", "", "mechanic filter")
	cmd.Flags().StringVar(&f.ElevatorID, "elevator", "", "elevator filter")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "max results")
	return cmd
}

func repairShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show repair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				rep, err := r.GetRepair(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(rep)
			})
		},
	}
	return cmd
}

func repairApproveCmd() *cobra.Command {
	return repairActionCmd("approve <id>", "Approve repair", func(ctx context.Context, e engine.Engine, id string) (domain.Repair, error) {
		return e.ApproveRepair(ctx, id, currentActor())
	})
}

func repairClaimCmd() *cobra.Command {
	return repairActionCmd("claim <id>", "Claim repair as mechanic", func(ctx context.Context, e engine.Engine, id string) (domain.Repair, error) {
		return e.ClaimRepair(ctx, id, currentActor())
	})
}

func repairCancelCmd() *cobra.Command {
	return repairActionCmd("cancel <id>", "Cancel pending repair", func(ctx context.Context, e engine.Engine, id string) (domain.Repair, error) {
		return e.CancelRepair(ctx, id, currentActor())
	})
}

func repairActionCmd(use, short string, fn func(context.Context, engine.Engine, string) (domain.Repair, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rep, err := fn(ctx, e, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(rep)
			})
		},
	}
}

func repairRescheduleCmd() *cobra.Command {
	var elevatorID, at string
	cmd := &cobra.Command{
		Use:   "reschedule <id>",
		Short: "Move repair onto another elevator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rep, err := e.RescheduleRepair(ctx, engine.RescheduleOptions{
					RepairID:    args[0],
					ElevatorID:  elevatorID,
					ScheduledAt: at,
				}, currentActor())
				if err != nil {
					return err
				}
				return printJSONOrTable(rep)
			})
		},
	}
	cmd.Flags().StringVar(&elevatorID, "elevator", "", "target elevator id")
	cmd.Flags().StringVar(&at, "at", "", "new scheduled time (RFC3339)")
	_ = cmd.MarkFlagRequired("elevator")
	return cmd
}

func repairAssignCmd() *cobra.Command {
	var mechanicID string
	cmd := &cobra.Command{
		Use:   "assign <id>",
		Short: "Assign mechanic to repair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rep, err := e.AssignMechanic(ctx, args[0], mechanicID, currentActor())
				if err != nil {
					return err
				}
				return printJSONOrTable(rep)
			})
		},
	}
	cmd.Flags().StringVar(&mechanicID, "mechanic", "", "mechanic actor id")
	_ = cmd.MarkFlagRequired("mechanic")
	return cmd
}

func repairUsageCmd() *cobra.Command {
	var note string
	cmd := &cobra.Command{
		Use:   "usage <id>",
		Short: "Record parts used on a repair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rep, err := e.RecordUsage(ctx, args[0], note, currentActor())
				if err != nil {
					return err
				}
				return printJSONOrTable(rep)
			})
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "what was used")
	_ = cmd.MarkFlagRequired("note")
	return cmd
}

func repairCompleteCmd() *cobra.Command {
	var cost float64
	cmd := &cobra.Command{
		Use:   "complete <id>",
		Short: "Complete repair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var finalCost *float64
			if cmd.Flags().Changed("cost") {
				finalCost = &cost
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rep, err := e.CompleteRepair(ctx, args[0], finalCost, currentActor())
				if err != nil {
					return err
				}
				return printJSONOrTable(rep)
			})
		},
	}
	cmd.Flags().Float64Var(&cost, "cost", 0, "final cost (defaults to shop config)")
	return cmd
}

func stockCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "stock", Short: "Manage consumables"}
	cmd.AddCommand(stockAddCmd())
	cmd.AddCommand(stockListCmd())
	cmd.AddCommand(stockLowCmd())
	cmd.AddCommand(stockReplenishCmd())
	cmd.AddCommand(stockReplenishLowCmd())
	return cmd
}

func stockAddCmd() *cobra.Command {
	var name string
	var quantity, threshold int
	var unitPrice float64
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add consumable",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.AddConsumable(ctx, engine.ConsumableOptions{
					Name:      name,
					Quantity:  quantity,
					UnitPrice: unitPrice,
					Threshold: threshold,
				}, currentActor())
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "consumable name")
	cmd.Flags().IntVar(&quantity, "quantity", 0, "initial quantity")
	cmd.Flags().Float64Var(&unitPrice, "unit-price", 0, "unit price")
	cmd.Flags().IntVar(&threshold, "threshold", 0, "reorder threshold")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func stockListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List consumables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListConsumables(ctx)
				if err != nil {
					return err
				}
				return printStockTable(items)
			})
		},
	}
	return cmd
}

func stockLowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "low",
		Short: "List consumables at or below threshold",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListLowConsumables(ctx)
				if err != nil {
					return err
				}
				return printStockTable(items)
			})
		},
	}
	return cmd
}

func printStockTable(items []domain.Consumable) error {
	if viper.GetBool("json") {
		return printJSON(items)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"ID", "Name", "Quantity", "Threshold", "Unit Price"})
	for _, c := range items {
		tw.AppendRow(table.Row{c.ID, c.Name, c.Quantity, c.Threshold, c.UnitPrice})
	}
	tw.Render()
	return nil
}

func stockReplenishCmd() *cobra.Command {
	var amount int
	cmd := &cobra.Command{
		Use:   "replenish <id>",
		Short: "Replenish consumable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var amt *int
			if cmd.Flags().Changed("amount") {
				amt = &amount
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.ReplenishStock(ctx, args[0], amt, currentActor())
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().IntVar(&amount, "amount", 0, "units to add (defaults to shop config)")
	return cmd
}

func stockReplenishLowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replenish-low",
		Short: "Replenish every low consumable",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ReplenishAllLow(ctx, currentActor())
				if printErr := printStockTable(items); printErr != nil {
					return printErr
				}
				return err
			})
		},
	}
	return cmd
}

func actorCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "actor", Short: "Manage the actor directory"}
	cmd.AddCommand(actorAddCmd())
	cmd.AddCommand(actorListCmd())
	cmd.AddCommand(actorRemoveCmd())
	return cmd
}

func actorAddCmd() *cobra.Command {
	var id, name, role string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.RegisterActor(ctx, engine.ActorOptions{
					ID:   id,
					Name: name,
					Role: domain.Role(role),
				}, currentActor())
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "actor id (generated when empty)")
	cmd.Flags().StringVar(&name, "name", "", "actor name")
	cmd.Flags().StringVar(&role, "role", "", "actor role")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func actorListCmd() *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List actors",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListActors(ctx, domain.Role(role))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Role"})
				for _, a := range items {
					tw.AppendRow(table.Row{a.ID, a.Name, a.Role})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "role filter")
	return cmd
}

func actorRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove actor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.RemoveActor(ctx, args[0], currentActor())
			})
		},
	}
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Shop configuration"}
	cmd.AddCommand(configShowCmd())
	cmd.AddCommand(configImportCmd())
	cmd.AddCommand(configTemplateCmd())
	return cmd
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show active config",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				cfg, err := app.ResolveConfig(ctx, r)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(cfg)
				}
				out, err := cfg.ToYAML()
				if err != nil {
					return err
				}
				fmt.Print(string(out))
				return nil
			})
		},
	}
	return cmd
}

func configImportCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import config from a YAML file into the DB",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromFile(file)
			if err != nil {
				return err
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				if err := r.UpsertShopConfig(ctx, cfg); err != nil {
					return err
				}
				fmt.Println("config imported")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "liftbay.yml", "config file path")
	return cmd
}

func configTemplateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Print a starter config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Print(config.Template())
			return nil
		},
	}
	return cmd
}

func logCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Event log",
		Long:  "The diary of everything that happened: repairs, elevators, stock, and staff.",
	}
	cmd.AddCommand(logTailCmd())
	return cmd
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
	var allowLegacy bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			r := repo.Repo{DB: conn}
			cfg, err := app.ResolveConfig(cmd.Context(), r)
			if err != nil {
				return err
			}
			e := engine.New(conn, cfg)
			authCfg := server.AuthConfig{
				JWTSecret:              os.Getenv("LIFTBAY_JWT_SECRET"),
				AllowLegacyActorHeader: allowLegacy,
			}
			if authCfg.JWTSecret == "" && !allowLegacy {
				return fmt.Errorf("LIFTBAY_JWT_SECRET is required for bearer auth")
			}
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg})
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
			fmt.Printf("Serving Liftbay API on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs)\n", addr, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	cmd.Flags().BoolVar(&allowLegacy, "allow-legacy-actor-header", false, "accept X-Actor-Id headers without a token")
	return cmd
}

// --- helpers ---

func currentActor() domain.Actor {
	role := domain.Role(viper.GetString("actor-role"))
	if role == "" {
		role = domain.RoleClient
	}
	return domain.Actor{ID: viper.GetString("actor-id"), Role: role}
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	return withRepo(ctx, func(ctx context.Context, r repo.Repo) error {
		cfg, err := app.ResolveConfig(ctx, r)
		if err != nil {
			return err
		}
		e := engine.New(r.DB, cfg)
		return fn(ctx, e)
	})
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
