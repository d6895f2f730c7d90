package batch_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	jperrors "github.com/JohnPlummer/jp-go-errors"

	batch "github.com/JohnPlummer/jp-go-batch"
)

var _ = Describe("CircuitBreakerWrapper", func() {
	var (
		ctx    context.Context
		cancel context.CancelFunc
		op     *mockOperation
		logger *slog.Logger
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		op = &mockOperation{}
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelError, // Quiet during tests
		}))
	})

	AfterEach(func() {
		cancel()
	})

	Describe("NewCircuitBreakerWrapper", func() {
		It("creates a wrapper with default config", func() {
			wrapper := batch.NewCircuitBreakerWrapper[string, string](op)
			Expect(wrapper).NotTo(BeNil())
			Expect(wrapper.State()).To(Equal(batch.StateClosed))
		})
	})

	Describe("Execute", func() {
		It("passes successful requests through a closed circuit", func() {
			op.executeFunc = func(ctx context.Context, req string) (string, error) {
				return "success", nil
			}

			wrapper := batch.NewCircuitBreakerWrapper[string, string](
				op,
				batch.WithCircuitBreakerLogger(logger),
			)

			resp, err := wrapper.Execute(ctx, "test")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp).To(Equal("success"))
			Expect(wrapper.Counts().TotalSuccesses).To(Equal(uint32(1)))
		})

		It("opens the circuit after repeated failures", func() {
			failure := batch.Recoverable(errors.New("resource down"))
			op.executeFunc = func(ctx context.Context, req string) (string, error) {
				return "", failure
			}

			wrapper := batch.NewCircuitBreakerWrapper[string, string](
				op,
				batch.WithReadyToTrip(func(counts batch.CircuitBreakerCounts) bool {
					return counts.ConsecutiveFailures >= 3
				}),
				batch.WithCircuitBreakerLogger(logger),
			)

			for i := 0; i < 3; i++ {
				_, err := wrapper.Execute(ctx, "test")
				Expect(err).To(HaveOccurred())
			}

			Expect(wrapper.State()).To(Equal(batch.StateOpen))
		})

		It("rejects requests with a wrapped circuit error while open", func() {
			failure := batch.Recoverable(errors.New("resource down"))
			op.executeFunc = func(ctx context.Context, req string) (string, error) {
				return "", failure
			}

			wrapper := batch.NewCircuitBreakerWrapper[string, string](
				op,
				batch.WithReadyToTrip(func(counts batch.CircuitBreakerCounts) bool {
					return counts.ConsecutiveFailures >= 2
				}),
				batch.WithCircuitBreakerLogger(logger),
			)

			for i := 0; i < 2; i++ {
				_, _ = wrapper.Execute(ctx, "test")
			}
			Expect(wrapper.State()).To(Equal(batch.StateOpen))

			callsBefore := op.getCallCount()
			_, err := wrapper.Execute(ctx, "test")
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, jperrors.ErrCircuitOpen)).To(BeTrue())
			Expect(op.getCallCount()).To(Equal(callsBefore), "open circuit must not call the operation")
		})

		It("does not trip on context cancellation", func() {
			op.executeFunc = func(ctx context.Context, req string) (string, error) {
				return "", context.Canceled
			}

			wrapper := batch.NewCircuitBreakerWrapper[string, string](
				op,
				batch.WithReadyToTrip(func(counts batch.CircuitBreakerCounts) bool {
					return counts.ConsecutiveFailures >= 1
				}),
				batch.WithCircuitBreakerLogger(logger),
			)

			for i := 0; i < 5; i++ {
				_, _ = wrapper.Execute(ctx, "test")
			}
			Expect(wrapper.State()).To(Equal(batch.StateClosed))
		})

		It("invokes the state change handler", func() {
			failure := batch.Recoverable(errors.New("resource down"))
			op.executeFunc = func(ctx context.Context, req string) (string, error) {
				return "", failure
			}

			var from, to batch.CircuitBreakerState
			changed := false

			wrapper := batch.NewCircuitBreakerWrapper[string, string](
				op,
				batch.WithReadyToTrip(func(counts batch.CircuitBreakerCounts) bool {
					return counts.ConsecutiveFailures >= 1
				}),
				batch.WithStateChangeHandler(func(name string, f, t batch.CircuitBreakerState) {
					changed = true
					from, to = f, t
				}),
				batch.WithCircuitBreakerLogger(logger),
			)

			_, _ = wrapper.Execute(ctx, "test")

			Expect(changed).To(BeTrue())
			Expect(from).To(Equal(batch.StateClosed))
			Expect(to).To(Equal(batch.StateOpen))
		})
	})

	Describe("GetHealth", func() {
		It("reports healthy while closed and unhealthy while open", func() {
			failure := batch.Recoverable(errors.New("resource down"))
			op.executeFunc = func(ctx context.Context, req string) (string, error) {
				return "", failure
			}

			wrapper := batch.NewCircuitBreakerWrapper[string, string](
				op,
				batch.WithReadyToTrip(func(counts batch.CircuitBreakerCounts) bool {
					return counts.ConsecutiveFailures >= 2
				}),
				batch.WithCircuitBreakerLogger(logger),
			)

			health := wrapper.GetHealth()
			Expect(health.Healthy).To(BeTrue())
			Expect(health.Status).To(Equal("closed"))

			for i := 0; i < 2; i++ {
				_, _ = wrapper.Execute(ctx, "test")
			}

			health = wrapper.GetHealth()
			Expect(health.Healthy).To(BeFalse())
			Expect(health.Status).To(Equal("open"))
		})
	})
})
