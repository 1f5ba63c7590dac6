// mercaditoctl: utilitario operativo del servicio. Corre contra la DB
// directamente (migraciones, seed de permisos) o muestra configuración
// estática (tabla de rutas).
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/mercadito/internal/config"
	"github.com/dropDatabas3/mercadito/internal/observability/logger"
	"github.com/dropDatabas3/mercadito/internal/routes"
	"github.com/dropDatabas3/mercadito/internal/security/password"
	"github.com/dropDatabas3/mercadito/internal/store/core"
	"github.com/dropDatabas3/mercadito/internal/store/pg"
	migrations "github.com/dropDatabas3/mercadito/migrations/postgres"
)

func loadConfig() (*config.Config, error) {
	_ = godotenv.Load()
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return config.Default()
	}
	return cfg, err
}

func openStore(ctx context.Context) (*pg.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return pg.New(ctx, cfg.Storage.DSN, pg.Config{
		MaxOpenConns: cfg.Storage.Postgres.MaxOpenConns,
		MinConns:     cfg.Storage.Postgres.MinConns,
	})
}

func main() {
	logger.Init(logger.Config{Env: "dev", Level: "warn"})

	root := &cobra.Command{
		Use:   "mercaditoctl",
		Short: "Herramientas operativas de mercadito",
	}

	root.AddCommand(pingCmd(), migrateCmd(), seedCmd(), userCreateCmd(), routesCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Verifica la conexión a la base",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Ping(ctx); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
			fmt.Println("ok")
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones embebidas pendientes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()
			pool := store.Pool()

			if _, err := pool.Exec(ctx,
				`CREATE TABLE IF NOT EXISTS schema_migrations (name text PRIMARY KEY, applied_at timestamptz NOT NULL DEFAULT now())`,
			); err != nil {
				return err
			}

			entries, err := migrations.FS.ReadDir(".")
			if err != nil {
				return err
			}
			var names []string
			for _, e := range entries {
				if strings.HasSuffix(e.Name(), ".sql") {
					names = append(names, e.Name())
				}
			}
			sort.Strings(names)

			for _, name := range names {
				var exists bool
				if err := pool.QueryRow(ctx,
					`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE name=$1)`, name,
				).Scan(&exists); err != nil {
					return err
				}
				if exists {
					continue
				}
				sql, err := migrations.FS.ReadFile(name)
				if err != nil {
					return err
				}
				tx, err := pool.Begin(ctx)
				if err != nil {
					return err
				}
				if _, err := tx.Exec(ctx, string(sql)); err != nil {
					_ = tx.Rollback(ctx)
					return fmt.Errorf("%s: %w", name, err)
				}
				if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, name); err != nil {
					_ = tx.Rollback(ctx)
					return err
				}
				if err := tx.Commit(ctx); err != nil {
					return err
				}
				fmt.Println("applied", name)
			}
			return nil
		},
	}
}

// seedCmd carga el set de permisos por rol por defecto. Idempotente.
func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Carga los permisos por rol por defecto",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()
			pool := store.Pool()

			grants := map[core.Role][]string{
				core.RoleStudent:   {routes.PermCardRead},
				core.RoleTeacher:   {routes.PermCardRead, routes.PermCardWrite},
				core.RoleStoreUser: {routes.PermCardRead, routes.PermCardWrite, routes.PermStoreManage},
				core.RoleConsole:   {routes.PermCardRead, routes.PermConsoleUserRead},
			}
			for role, perms := range grants {
				for _, p := range perms {
					if _, err := pool.Exec(ctx,
						`INSERT INTO role_permission (role, permission) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
						string(role), p,
					); err != nil {
						return err
					}
					fmt.Printf("grant %s -> %s\n", role, p)
				}
			}
			return nil
		},
	}
}

// userCreateCmd da de alta un usuario con cuenta personal desde la
// línea de comandos (bootstrap de la consola, usuarios de prueba).
func userCreateCmd() *cobra.Command {
	var (
		emailFlag string
		passFlag  string
		nameFlag  string
		roleFlag  string
	)
	cmd := &cobra.Command{
		Use:   "user-create",
		Short: "Crea un usuario con su cuenta personal",
		RunE: func(cmd *cobra.Command, args []string) error {
			if emailFlag == "" || len(passFlag) < 8 {
				return fmt.Errorf("se requieren --email y --password (mínimo 8 caracteres)")
			}
			role := core.Role(roleFlag)
			switch role {
			case core.RoleStudent, core.RoleTeacher, core.RoleStoreUser, core.RoleConsole:
			default:
				return fmt.Errorf("rol desconocido %q", roleFlag)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			hash, err := password.Hash(password.Default, passFlag)
			if err != nil {
				return err
			}
			u := &core.User{Email: strings.ToLower(strings.TrimSpace(emailFlag)), Name: nameFlag}
			acc, err := store.CreateUserWithAccount(ctx, u, &hash)
			if err != nil {
				if errors.Is(err, core.ErrConflict) {
					return fmt.Errorf("ya existe un usuario con email %s", u.Email)
				}
				return err
			}
			if role != core.RoleStudent {
				if _, err := store.Pool().Exec(ctx,
					`UPDATE account SET role=$1 WHERE id=$2`, string(role), acc.ID,
				); err != nil {
					return err
				}
			}
			fmt.Printf("user %s account %s role %s\n", u.ID, acc.ID, role)
			return nil
		},
	}
	cmd.Flags().StringVar(&emailFlag, "email", "", "email del usuario")
	cmd.Flags().StringVar(&passFlag, "password", "", "password inicial")
	cmd.Flags().StringVar(&nameFlag, "name", "", "nombre visible")
	cmd.Flags().StringVar(&roleFlag, "role", string(core.RoleStudent), "rol de la cuenta personal")
	return cmd
}

func routesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Lista la tabla de endpoints registrados",
		Run: func(cmd *cobra.Command, args []string) {
			eps := routes.NewRegistry(routes.Table).Patterns()
			sort.Slice(eps, func(i, j int) bool {
				if eps[i].PathPattern != eps[j].PathPattern {
					return eps[i].PathPattern < eps[j].PathPattern
				}
				return eps[i].Method < eps[j].Method
			})
			for _, ep := range eps {
				flags := []string{}
				if ep.AuthRequired {
					flags = append(flags, "auth")
				}
				if ep.Permission != "" {
					flags = append(flags, "perm="+ep.Permission)
				}
				if ep.Verify.Email {
					flags = append(flags, "email-verified")
				}
				if ep.Verify.Phone {
					flags = append(flags, "phone-verified")
				}
				if ep.WorkspaceScoped {
					flags = append(flags, "workspace")
				}
				fmt.Printf("%-6s %-45s %s\n", ep.Method, ep.PathPattern, strings.Join(flags, ","))
			}
		},
	}
}
