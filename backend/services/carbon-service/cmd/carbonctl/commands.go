package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"carboncheck/backend/libs/logging"
	"carboncheck/backend/services/carbon-service/internal/app"
	"carboncheck/backend/services/carbon-service/internal/config"
	"carboncheck/backend/services/carbon-service/internal/intensity"
	"carboncheck/backend/services/carbon-service/internal/service"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "carbonctl",
		Short:        "Operator tooling for the carbon service",
		SilenceUsage: true,
	}
	root.AddCommand(newHashKeyCmd(), newTokenCmd(), newCheckCmd())
	return root
}

func newHashKeyCmd() *cobra.Command {
	var cost int
	cmd := &cobra.Command{
		Use:   "hash-key <key>",
		Short: "Print the bcrypt hash of an access key for CARBON_ACCESS_KEY_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := strings.TrimSpace(args[0])
			if key == "" {
				return errors.New("access key is empty")
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(key), cost)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(hash))
			return nil
		},
	}
	cmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost")
	return cmd
}

func newTokenCmd() *cobra.Command {
	var (
		secret  string
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an HS256 bearer token for the HTTP triggers",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				secret = cfg.Auth.JWTSecret
			}
			if secret == "" {
				return errors.New("jwt secret is required: pass --secret or set CARBON_JWT_SECRET")
			}
			token, err := issueToken(secret, subject, ttl, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "signing secret (defaults to configured auth.jwtSecret)")
	cmd.Flags().StringVar(&subject, "subject", "carbonctl", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func issueToken(secret, subject string, ttl time.Duration, now time.Time) (string, error) {
	if ttl <= 0 {
		return "", errors.New("ttl must be positive")
	}
	now = now.UTC()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run one ingestion cycle against the configured store and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, err := logging.NewLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx := cmd.Context()
			store, closeStore, err := app.OpenStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			source := intensity.NewClient(cfg.Intensity.URL, logger, intensity.WithTimeout(cfg.IntensityTimeout()))
			svc := service.NewIngestionService(source, store, cfg.CheckParams(), logger)

			res, err := svc.Ingest(ctx, svc.Params())
			if err != nil {
				return err
			}

			out := map[string]interface{}{
				"status":           res.Status,
				"message":          res.Message,
				"carbon_intensity": res.Intensity,
				"can_charge":       res.CanCharge,
			}
			if res.Reading != nil {
				out["row_key"] = res.Reading.RowKey
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}
