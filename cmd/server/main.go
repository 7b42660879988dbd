package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/lottera/lottery-core/internal/custody"
	"github.com/lottera/lottery-core/internal/farm"
	"github.com/lottera/lottery-core/internal/lottery"
	"github.com/lottera/lottery-core/internal/metrics"
	"github.com/lottera/lottery-core/internal/oracle"
	"github.com/lottera/lottery-core/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// --- Initialize store ---
	var st store.Store
	var cleanup []func()

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := pgxpool.New(context.Background(), dbURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		st = store.NewPostgresStore(pool)
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
			opt, err := redis.ParseURL(redisURL)
			if err != nil {
				slog.Error("invalid REDIS_URL", "err", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			st = store.NewCachedStore(st, rdb, 30*time.Second)
			slog.Info("Redis cache enabled")
		}
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory store (data will not persist)")
		st = store.NewMemoryStore()
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Custody and oracle ---
	cust := custody.NewMemoryCustody()
	reserves := oracle.StaticSource{Pair: oracle.Pair{
		Reward: envDecimal("ORACLE_REWARD_RESERVE", "1000000"),
		Stable: envDecimal("ORACLE_STABLE_RESERVE", "10000"),
	}}

	cfg := lottery.Config{
		RewardToken: envString("REWARD_TOKEN", "LTR"),
		StableToken: envString("STABLE_TOKEN", "BUSD"),
		PoolAccount: envString("POOL_ACCOUNT", "lottery-pool"),
		DexAccount:  envString("DEX_ACCOUNT", "dex"),
	}
	// The dex counterparty needs inventory on both sides to settle rounds.
	cust.SetBalance(cfg.RewardToken, cfg.DexAccount, envDecimal("DEX_REWARD_INVENTORY", "100000000"))
	cust.SetBalance(cfg.StableToken, cfg.DexAccount, envDecimal("DEX_STABLE_INVENTORY", "100000000"))

	owner := envString("LOTTERY_OWNER", "operator")

	// --- WebSocket hub ---
	wsHub := lottery.NewWSHub()
	go wsHub.Run()

	// --- Lottery service ---
	svc := lottery.NewService(st, cust, reserves, lottery.StaticOwner{Owner: owner}, cfg, wsHub)

	// --- Farm ---
	// Block height derives from wall clock against a fixed block time.
	blockTime := time.Duration(envInt("FARM_BLOCK_SECONDS", 3)) * time.Second
	genesis := time.Now().UTC()
	lpFarm := farm.New(cust, farm.BlockFunc(func() int64 {
		return int64(time.Since(genesis) / blockTime)
	}), farm.Config{
		LPToken:          envString("LP_TOKEN", "LTR-BUSD-LP"),
		RewardToken:      cfg.RewardToken,
		FarmAccount:      envString("FARM_ACCOUNT", "farm-pool"),
		EmissionPerBlock: envDecimal("FARM_EMISSION_PER_BLOCK", "2"),
	})

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	// CORS middleware for frontend cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"lottery-core"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for real-time round updates.
		r.Get("/ws", wsHub.HandleWS)

		// Lottery management.
		r.Get("/lotteries", svc.HandleListLotteries)
		r.Post("/lotteries", svc.HandleCreateLottery)
		r.Get("/lotteries/by-name/{name}", svc.HandleGetLotteryByName)
		r.Get("/lotteries/{lotteryID}", svc.HandleGetLottery)
		r.Post("/lotteries/{lotteryID}/close", svc.HandleClose)
		r.Post("/lotteries/{lotteryID}/reopen", svc.HandleReopen)
		r.Put("/lotteries/{lotteryID}/winning-count", svc.HandleAdjustWinningCount)
		r.Post("/lotteries/{lotteryID}/draw", svc.HandleDraw)
		r.Get("/lotteries/{lotteryID}/winning-numbers", svc.HandleGetWinningNumbers)

		// Wagers.
		r.Post("/lotteries/{lotteryID}/wagers", svc.HandleBuyWagers)
		r.Get("/lotteries/{lotteryID}/wagers/{gambler}", svc.HandleGetWagers)
		r.Get("/lotteries/{lotteryID}/numbers/{number}/multiplier", svc.HandleGetMultiplier)
		r.Get("/lotteries/{lotteryID}/numbers/{number}/max-bet", svc.HandleGetMaxAllowBet)
		r.Get("/lotteries/{lotteryID}/locked", svc.HandleGetLocked)
		r.Get("/quotes/{amount}", svc.HandleGetQuotes)

		// Banker stakes.
		r.Post("/lotteries/{lotteryID}/stake", svc.HandleStake)
		r.Post("/lotteries/{lotteryID}/unstake", svc.HandleUnstake)
		r.Get("/lotteries/{lotteryID}/stake/{banker}", svc.HandleGetStake)

		// Claims.
		r.Get("/lotteries/{lotteryID}/claims/{gambler}", svc.HandleGetClaimable)
		r.Post("/lotteries/{lotteryID}/claims", svc.HandleClaim)

		// LP farm.
		r.Post("/farm/stake", lpFarm.HandleStake)
		r.Post("/farm/unstake", lpFarm.HandleUnstake)
		r.Post("/farm/claims", lpFarm.HandleClaim)
		r.Get("/farm/rewards/{account}", lpFarm.HandleGetRewards)
		r.Get("/farm/users/{account}", lpFarm.HandleGetUserInfo)
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("lottery-core listening", "port", port, "owner", owner)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down lottery-core...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("lottery-core stopped")
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return def
}

func envDecimal(key, def string) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	}
	d, _ := decimal.NewFromString(def)
	return d
}
