package batch_test

import (
	"context"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	batch "github.com/JohnPlummer/jp-go-batch"
)

var _ = Describe("Slicer", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	// drain collects every batch until exhaustion.
	drain := func(s *batch.Slicer[string]) [][]string {
		var out [][]string
		for {
			chunk, err := s.Next(ctx)
			if errors.Is(err, batch.ErrEndOfInput) {
				return out
			}
			Expect(err).NotTo(HaveOccurred())
			out = append(out, chunk)
		}
	}

	makeItems := func(n int) []string {
		items := make([]string, n)
		for i := range items {
			items[i] = fmt.Sprintf("item-%d", i)
		}
		return items
	}

	Describe("NewSlicer", func() {
		It("rejects a batch size below 1", func() {
			_, err := batch.NewSlicer([]string{"a"}, 0)
			Expect(errors.Is(err, batch.ErrInvalidConfig)).To(BeTrue())

			_, err = batch.NewSlicer([]string{"a"}, -3)
			Expect(errors.Is(err, batch.ErrInvalidConfig)).To(BeTrue())
		})
	})

	Describe("Next", func() {
		It("partitions the input exactly", func() {
			items := makeItems(23)
			s, err := batch.NewSlicer(items, 5)
			Expect(err).NotTo(HaveOccurred())

			batches := drain(s)
			Expect(batches).To(HaveLen(5))
			for i, b := range batches[:4] {
				Expect(b).To(HaveLen(5), "batch %d should be full", i)
			}
			Expect(batches[4]).To(HaveLen(3))

			var flat []string
			for _, b := range batches {
				flat = append(flat, b...)
			}
			Expect(flat).To(Equal(items))
		})

		It("produces one full batch when the remainder is zero", func() {
			items := makeItems(10)
			s, err := batch.NewSlicer(items, 5)
			Expect(err).NotTo(HaveOccurred())

			batches := drain(s)
			Expect(batches).To(HaveLen(2))
			Expect(batches[0]).To(HaveLen(5))
			Expect(batches[1]).To(HaveLen(5))
		})

		It("handles an input shorter than the batch size", func() {
			s, err := batch.NewSlicer(makeItems(3), 10)
			Expect(err).NotTo(HaveOccurred())

			batches := drain(s)
			Expect(batches).To(HaveLen(1))
			Expect(batches[0]).To(HaveLen(3))
		})

		It("is exhausted immediately for empty input", func() {
			s, err := batch.NewSlicer([]string{}, 5)
			Expect(err).NotTo(HaveOccurred())

			_, nextErr := s.Next(ctx)
			Expect(errors.Is(nextErr, batch.ErrEndOfInput)).To(BeTrue())
		})

		It("stays exhausted once the input is consumed", func() {
			s, err := batch.NewSlicer(makeItems(4), 2)
			Expect(err).NotTo(HaveOccurred())
			drain(s)

			for i := 0; i < 3; i++ {
				_, nextErr := s.Next(ctx)
				Expect(errors.Is(nextErr, batch.ErrEndOfInput)).To(BeTrue())
			}
		})

		It("honors context cancellation before producing a batch", func() {
			s, err := batch.NewSlicer(makeItems(10), 2)
			Expect(err).NotTo(HaveOccurred())

			first, err := s.Next(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(first).To(HaveLen(2))

			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			_, err = s.Next(cancelled)
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())

			// The cursor did not advance on the cancelled call
			Expect(s.Remaining()).To(Equal(8))
		})

		It("tracks remaining items as batches are consumed", func() {
			s, err := batch.NewSlicer(makeItems(7), 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Remaining()).To(Equal(7))

			_, _ = s.Next(ctx)
			Expect(s.Remaining()).To(Equal(4))

			_, _ = s.Next(ctx)
			Expect(s.Remaining()).To(Equal(1))

			_, _ = s.Next(ctx)
			Expect(s.Remaining()).To(Equal(0))
		})
	})
})
