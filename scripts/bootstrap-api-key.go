package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/looply/looply/internal/cache"
	"github.com/looply/looply/internal/config"
	"github.com/looply/looply/internal/kv"
	"github.com/looply/looply/internal/model"
	"github.com/looply/looply/internal/repository"
	"github.com/looply/looply/internal/service"
)

type output struct {
	OwnerEmail string `json:"ownerEmail"`
	Plan       string `json:"plan"`
	KeyID      string `json:"keyId"`
	Key        string `json:"apiKey"`
	KeyPrefix  string `json:"prefix"`
	CreatedAt  int64  `json:"createdAt"`
}

// bootstrap-api-key registers (or refreshes) an owner account in the KV
// store selected by the usual environment and issues one webhook API key.
func main() {
	var (
		email     = flag.String("email", "", "Owner email (required)")
		name      = flag.String("name", "", "Owner display name")
		plan      = flag.String("plan", "", "Plan: starter, growth or pro")
		trialDays = flag.Float64("trial-days", 0, "Trial length in days (0 keeps the stored value)")
		format    = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if strings.TrimSpace(*email) == "" {
		fmt.Fprintln(os.Stderr, "-email is required")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	if cfg.KVDriver == config.KVDriverMemory {
		fmt.Fprintln(os.Stderr, "KV_DRIVER=memory does not persist; choose rest, redis or postgres")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open storage:", err)
		os.Exit(1)
	}
	defer closeStore()

	repo := repository.New(store)
	leads := service.NewLeadService(repo, nil)
	keys := service.NewAPIKeyService(repo, nil)

	input := service.RegisterInput{Email: *email}
	if *name != "" {
		input.Name = name
	}
	if *plan != "" {
		p := string(model.ParsePlan(*plan))
		input.Plan = &p
	}
	if *trialDays > 0 {
		input.TrialDays = trialDays
	}
	user, err := leads.Register(ctx, input)
	if err != nil {
		fmt.Fprintln(os.Stderr, "register owner:", err)
		os.Exit(1)
	}

	created, err := keys.Create(ctx, user.Email)
	if err != nil {
		fmt.Fprintln(os.Stderr, "create api key:", err)
		os.Exit(1)
	}

	out := output{
		OwnerEmail: user.Email,
		Plan:       string(user.Plan),
		KeyID:      created.ID,
		Key:        created.APIKey,
		KeyPrefix:  created.Prefix,
		CreatedAt:  created.CreatedAt,
	}

	switch strings.ToLower(*format) {
	case "plain":
		fmt.Printf("X-API-Key-Id: %s\nAuthorization: Bearer %s\n", out.KeyID, out.Key)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fmt.Fprintln(os.Stderr, "invalid format; use plain or json")
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (kv.Store, func(), error) {
	switch cfg.KVDriver {
	case config.KVDriverRedis:
		c, err := cache.New(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return kv.NewRedis(c.Client()), func() { _ = c.Close() }, nil
	case config.KVDriverPostgres:
		p, err := kv.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return p, func() { _ = p.Close() }, nil
	default:
		rest := kv.NewREST(cfg.KVRestURL, cfg.KVRestToken, kv.NewHTTPClient(cfg.KVTimeout))
		if !rest.Configured() {
			return nil, nil, fmt.Errorf("%w: set KV_REST_API_URL and KV_REST_API_TOKEN", kv.ErrNotConfigured)
		}
		return rest, func() {}, nil
	}
}
