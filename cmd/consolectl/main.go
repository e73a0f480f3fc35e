package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/consolegate/internal/config"
	"github.com/dropDatabas3/consolegate/internal/domain/repository"
	"github.com/dropDatabas3/consolegate/internal/jwt"
)

type client struct {
	BaseURL   string
	Token     string
	OutFormat string // "json" | "text"
	HTTP      *http.Client
}

func (c *client) do(method, path string, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, strings.TrimRight(c.BaseURL, "/")+path, body)
	if err != nil {
		return 0, nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b, nil
}

// call ejecuta y falla si el status no es 2xx.
func (c *client) call(op, method, path string, payload any) error {
	status, body, err := c.do(method, path, payload)
	if err != nil {
		return err
	}
	if status/100 != 2 {
		return fmt.Errorf("%s fallo: status=%d body=%s", op, status, strings.TrimSpace(string(body)))
	}
	c.print(status, body)
	return nil
}

func (c *client) print(status int, body []byte) {
	if c.OutFormat == "json" {
		var v any
		if json.Unmarshal(body, &v) == nil {
			p, _ := json.MarshalIndent(v, "", "  ")
			fmt.Println(string(p))
			return
		}
	}
	if len(body) > 0 {
		fmt.Println(strings.TrimSpace(string(body)))
	} else {
		fmt.Printf("status=%d\n", status)
	}
}

// scopePath traduce platform | tenant/{id} | tenant/{id}/app/{id} al prefijo /rbac/...
func scopePath(raw string) (string, error) {
	s, err := repository.ParseScope(raw)
	if err != nil {
		return "", err
	}
	switch s.Kind {
	case repository.ScopePlatform:
		return "/rbac/platform", nil
	case repository.ScopeTenant:
		return "/rbac/tenant/" + url.PathEscape(s.TenantID), nil
	default:
		return "/rbac/tenant/" + url.PathEscape(s.TenantID) + "/app/" + url.PathEscape(s.AppID), nil
	}
}

func main() {
	_ = godotenv.Load()

	var (
		baseURL = envOr("CONSOLEGATE_URL", "http://localhost:8080")
		token   = envOr("CONSOLEGATE_TOKEN", "")
		out     = envOr("CONSOLEGATE_OUT", "text")
		timeout = 30 * time.Second
	)

	cl := &client{HTTP: &http.Client{Timeout: timeout}}

	root := &cobra.Command{
		Use:           "consolectl",
		Short:         "CLI para el handoff de consola y RBAC de consolegate",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cl.BaseURL, cl.Token, cl.OutFormat = baseURL, token, out
		},
	}
	root.PersistentFlags().StringVar(&baseURL, "url", baseURL, "URL base del servicio (env CONSOLEGATE_URL)")
	root.PersistentFlags().StringVar(&token, "token", token, "Bearer a enviar (env CONSOLEGATE_TOKEN)")
	root.PersistentFlags().StringVar(&out, "out", out, "Formato de salida: json|text")

	needToken := func(cmd *cobra.Command, args []string) error {
		if token == "" {
			return errors.New("falta token (flag --token o env CONSOLEGATE_TOKEN)")
		}
		return nil
	}

	// ─── session-token (dev) ───
	var stConfig, stSub string
	var stTTL time.Duration
	sessionCmd := &cobra.Command{
		Use:   "session-token",
		Short: "Firma un token de sesión local con jwt.signing_seed (solo dev)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if stSub == "" {
				return errors.New("--sub es requerido")
			}
			cfg, err := config.Load(stConfig)
			if err != nil {
				return err
			}
			if cfg.JWT.SigningSeed == "" {
				return errors.New("jwt.signing_seed vacío: el servidor usaría una clave efímera")
			}
			ks, err := jwt.NewKeySetFromSeed(cfg.JWT.SigningSeed, cfg.JWT.KID)
			if err != nil {
				return err
			}
			tok, err := jwt.NewIssuer(cfg.JWT.Issuer, ks, cfg.JWT.AccessTTL).IssueSession(stSub, stTTL)
			if err != nil {
				return err
			}
			fmt.Println(tok)
			return nil
		},
	}
	sessionCmd.Flags().StringVar(&stConfig, "config", os.Getenv("CONFIG_PATH"), "Path a la config YAML")
	sessionCmd.Flags().StringVar(&stSub, "sub", "", "Principal (sub)")
	sessionCmd.Flags().DurationVar(&stTTL, "ttl", time.Hour, "Vida del token")

	// ─── handoff ───
	var mintTarget, mintTenant string
	mintCmd := &cobra.Command{
		Use:     "mint",
		Short:   "POST /authz/mint con un token de sesión",
		PreRunE: needToken,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.call("mint", http.MethodPost, "/authz/mint", map[string]string{
				"target_context": mintTarget, "tenant_id": mintTenant,
			})
		},
	}
	mintCmd.Flags().StringVar(&mintTarget, "target", "", "admin|tenant")
	mintCmd.Flags().StringVar(&mintTenant, "tenant", "", "Tenant (requerido si target=tenant)")

	exchangeCmd := &cobra.Command{
		Use:   "exchange <code>",
		Short: "POST /authz/exchange",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.call("exchange", http.MethodPost, "/authz/exchange", map[string]string{"code": args[0]})
		},
	}

	targetsCmd := &cobra.Command{
		Use:     "targets",
		Short:   "GET /authz/targets",
		PreRunE: needToken,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.call("targets", http.MethodGet, "/authz/targets", nil)
		},
	}

	// ─── rbac ───
	var scope string
	scoped := func(c *cobra.Command) *cobra.Command {
		c.Flags().StringVar(&scope, "scope", "platform", "platform | tenant/{id} | tenant/{id}/app/{id}")
		c.PreRunE = needToken
		return c
	}

	var search string
	var page, pageSize int
	rolesList := scoped(&cobra.Command{
		Use:   "list",
		Short: "Lista roles del scope",
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix, err := scopePath(scope)
			if err != nil {
				return err
			}
			q := url.Values{}
			if search != "" {
				q.Set("search", search)
			}
			if page > 0 {
				q.Set("page", fmt.Sprint(page))
			}
			if pageSize > 0 {
				q.Set("page_size", fmt.Sprint(pageSize))
			}
			path := prefix + "/roles"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}
			return cl.call("roles list", http.MethodGet, path, nil)
		},
	})
	rolesList.Flags().StringVar(&search, "search", "", "Filtro por code/name/description")
	rolesList.Flags().IntVar(&page, "page", 0, "Página")
	rolesList.Flags().IntVar(&pageSize, "page-size", 0, "Tamaño de página (max 100)")

	var roleCode, roleName, roleDesc string
	rolesCreate := scoped(&cobra.Command{
		Use:   "create",
		Short: "Crea un rol en el scope",
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix, err := scopePath(scope)
			if err != nil {
				return err
			}
			return cl.call("roles create", http.MethodPost, prefix+"/roles", map[string]string{
				"code": roleCode, "name": roleName, "description": roleDesc,
			})
		},
	})
	rolesCreate.Flags().StringVar(&roleCode, "code", "", "Code del rol")
	rolesCreate.Flags().StringVar(&roleName, "name", "", "Nombre visible")
	rolesCreate.Flags().StringVar(&roleDesc, "description", "", "Descripción")

	rolesDelete := &cobra.Command{
		Use:     "delete <role-id>",
		Short:   "Elimina un rol (el scope se toma del rol)",
		Args:    cobra.ExactArgs(1),
		PreRunE: needToken,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.call("roles delete", http.MethodDelete, "/rbac/roles/"+url.PathEscape(args[0]), nil)
		},
	}

	var category string
	permsList := scoped(&cobra.Command{
		Use:   "list",
		Short: "Lista permisos del scope",
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix, err := scopePath(scope)
			if err != nil {
				return err
			}
			path := prefix + "/permissions"
			if category != "" {
				path += "?" + url.Values{"category": {category}}.Encode()
			}
			return cl.call("permissions list", http.MethodGet, path, nil)
		},
	})
	permsList.Flags().StringVar(&category, "category", "", "Filtro por categoría")

	var permCode, permCategory, permName, permDesc string
	permsCreate := scoped(&cobra.Command{
		Use:   "create",
		Short: "Crea un permiso en el scope",
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix, err := scopePath(scope)
			if err != nil {
				return err
			}
			return cl.call("permissions create", http.MethodPost, prefix+"/permissions", map[string]string{
				"code": permCode, "category": permCategory, "name": permName, "description": permDesc,
			})
		},
	})
	permsCreate.Flags().StringVar(&permCode, "code", "", "Code del permiso")
	permsCreate.Flags().StringVar(&permCategory, "category", "", "Categoría")
	permsCreate.Flags().StringVar(&permName, "name", "", "Nombre visible")
	permsCreate.Flags().StringVar(&permDesc, "description", "", "Descripción")

	var assignPrincipal string
	var assignRoles []string
	assignCmd := scoped(&cobra.Command{
		Use:   "assign",
		Short: "Reemplaza los roles del principal en el scope",
		RunE: func(cmd *cobra.Command, args []string) error {
			if assignPrincipal == "" {
				return errors.New("--principal es requerido")
			}
			prefix, err := scopePath(scope)
			if err != nil {
				return err
			}
			roles := assignRoles
			if roles == nil {
				roles = []string{}
			}
			return cl.call("assign", http.MethodPost, prefix+"/assignments", map[string]any{
				"principal_id": assignPrincipal, "role_ids": roles,
			})
		},
	})
	assignCmd.Flags().StringVar(&assignPrincipal, "principal", "", "Principal")
	assignCmd.Flags().StringSliceVar(&assignRoles, "role", nil, "Role id (repetible; ninguno = quitar todos)")

	effectiveCmd := scoped(&cobra.Command{
		Use:   "effective <principal>",
		Short: "Permisos efectivos del principal en el scope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix, err := scopePath(scope)
			if err != nil {
				return err
			}
			return cl.call("effective", http.MethodGet, prefix+"/effective/"+url.PathEscape(args[0]), nil)
		},
	})

	// wiring
	rolesCmd := &cobra.Command{Use: "roles", Short: "Operaciones sobre roles"}
	rolesCmd.AddCommand(rolesList, rolesCreate, rolesDelete)
	permsCmd := &cobra.Command{Use: "permissions", Short: "Operaciones sobre permisos"}
	permsCmd.AddCommand(permsList, permsCreate)

	root.AddCommand(sessionCmd, mintCmd, exchangeCmd, targetsCmd, rolesCmd, permsCmd, assignCmd, effectiveCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
