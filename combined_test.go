package batch_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	batch "github.com/JohnPlummer/jp-go-batch"
)

var _ = Describe("Resilient pipeline", func() {
	var (
		ctx      context.Context
		cancel   context.CancelFunc
		registry *batch.Registry
		logger   *slog.Logger
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelError, // Quiet during tests
		}))
		registry = batch.NewRegistry(batch.WithRegistryLogger(logger))
	})

	AfterEach(func() {
		cancel()
	})

	Describe("retrying connect", func() {
		It("fails all five attempts for a short connection string", func() {
			handle := registry.GetOrCreate("database")

			attempts := 0
			counting := batch.OperationFunc[string, string](func(ctx context.Context, connString string) (string, error) {
				attempts++
				return handle.Connector().Execute(ctx, connString)
			})

			wrapper := batch.NewRetryWrapper(
				batch.Operation[string, string](counting),
				batch.WithMaxAttempts(5),
				batch.WithConstantBackoff(time.Millisecond),
				batch.WithRetryLogger(logger),
			)

			_, err := wrapper.Execute(ctx, "short")
			Expect(err).To(HaveOccurred())
			Expect(attempts).To(Equal(5))

			var connErr *batch.ConnectionError
			Expect(errors.As(err, &connErr)).To(BeTrue(), "final error must be the connection error")
			Expect(handle.Status()).To(Equal(batch.StatusFailed))
		})

		It("succeeds on the first attempt for a valid connection string", func() {
			handle := registry.GetOrCreate("database")

			wrapper := batch.NewRetryWrapper(
				handle.Connector(),
				batch.WithMaxAttempts(5),
				batch.WithConstantBackoff(time.Millisecond),
				batch.WithRetryLogger(logger),
			)

			key, err := wrapper.Execute(ctx, "a-valid-connection-string")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("a-valid-connection-string"))
			Expect(handle.Status()).To(Equal(batch.StatusCompleted))

			stats := wrapper.GetRetryStats()
			Expect(stats.TotalAttempts).To(Equal(int64(1)))
			Expect(stats.TotalRetries).To(Equal(int64(0)))
		})
	})

	Describe("retry combined with circuit breaker", func() {
		It("stops retrying against an open circuit", func() {
			handle := registry.GetOrCreate("database")

			retryConfig := batch.DefaultRetryConfig()
			retryConfig.MaxAttempts = 5
			retryConfig.BaseDelay = time.Millisecond
			retryConfig.Strategy = batch.RetryStrategyConstant

			cbConfig := batch.DefaultCircuitBreakerConfig()
			cbConfig.ReadyToTrip = func(counts batch.CircuitBreakerCounts) bool {
				return counts.ConsecutiveFailures >= 2
			}

			combined := batch.CombineRetryAndCircuitBreaker(
				handle.Connector(),
				retryConfig,
				cbConfig,
				logger,
			)

			_, err := combined.Execute(ctx, "short")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("full pipeline", func() {
		It("connects with retry then processes items through a session", func() {
			handle := registry.GetOrCreate("database")

			wrapper := batch.NewRetryWrapper(
				handle.Connector(),
				batch.WithMaxAttempts(3),
				batch.WithConstantBackoff(time.Millisecond),
				batch.WithRetryLogger(logger),
			)
			_, err := wrapper.Execute(ctx, "postgres://localhost:5432/app")
			Expect(err).NotTo(HaveOccurred())
			Expect(handle.Status()).To(Equal(batch.StatusCompleted))

			items := []string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta", "eta"}
			results, err := batch.Run(ctx,
				func(item string) (string, error) {
					return "processed_" + item, nil
				},
				func(ctx context.Context, s *batch.Session[string, string]) ([]string, error) {
					return s.ProcessItems(ctx, items)
				},
				batch.WithBatchSize(3),
				batch.WithSessionLogger(logger),
			)

			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(Equal([]string{
				"processed_alpha", "processed_beta", "processed_gamma",
				"processed_delta", "processed_epsilon", "processed_zeta",
				"processed_eta",
			}))

			snap := handle.Snapshot()
			Expect(snap.Status).To(Equal("completed"))
			Expect(snap.Connections).To(HaveLen(1))
		})
	})
})
