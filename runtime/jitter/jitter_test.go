/*
Copyright 2026 The Flux authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package jitter

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	. "github.com/onsi/gomega"
	"github.com/spf13/pflag"
)

func TestNoJitter(t *testing.T) {
	g := NewWithT(t)

	g.Expect(NoJitter(10 * time.Second)).To(Equal(10 * time.Second))
	g.Expect(NoJitter(0)).To(Equal(0 * time.Second))
	g.Expect(NoJitter(-10 * time.Second)).To(Equal(-10 * time.Second))
}

func TestPercent(t *testing.T) {
	r := rand.New(rand.NewSource(int64(12345)))

	tests := []struct {
		p        float64
		duration time.Duration
	}{
		{p: 0.1, duration: 100 * time.Millisecond},
		{p: 0, duration: 100 * time.Millisecond},
		{p: 1, duration: 100 * time.Millisecond},
		{p: -1, duration: 100 * time.Millisecond},
		{p: 2, duration: 100 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("p=%v, duration=%v", tt.p, tt.duration), func(t *testing.T) {
			g := NewWithT(t)

			fn := Percent(tt.p, r)

			if tt.p > 0 && tt.p < 1 {
				for i := 0; i < 100; i++ {
					lowerBound := float64(tt.duration) * (1 - tt.p)
					upperBound := float64(tt.duration) * (1 + tt.p)

					d := fn(tt.duration)
					g.Expect(d).To(BeNumerically(">=", lowerBound))
					g.Expect(d).To(BeNumerically("<=", upperBound))
					g.Expect(d).ToNot(Equal(tt.duration))
				}
			} else {
				g.Expect(fn(tt.duration)).To(Equal(tt.duration))
			}
		})
	}
}

func TestInterval_BindFlags(t *testing.T) {
	g := NewWithT(t)

	interval := &Interval{}
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	interval.BindFlags(fs)
	g.Expect(interval.Percentage).To(BeZero())

	g.Expect(fs.Set(flagIntervalJitter, "25")).To(Succeed())
	g.Expect(interval.Percentage).To(Equal(uint8(25)))
}

func TestInterval_BindFlagsWithDefault(t *testing.T) {
	t.Run("negative default", func(t *testing.T) {
		g := NewWithT(t)

		interval := &Interval{}
		fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
		interval.BindFlagsWithDefault(fs, -1)
		g.Expect(interval.Percentage).To(BeZero())
	})

	t.Run("custom default", func(t *testing.T) {
		g := NewWithT(t)

		interval := &Interval{}
		fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
		interval.BindFlagsWithDefault(fs, 50)
		g.Expect(interval.Percentage).To(Equal(uint8(50)))
	})
}

func TestInterval_Jitter(t *testing.T) {
	t.Run("invalid percentage >=100", func(t *testing.T) {
		g := NewWithT(t)

		interval := &Interval{Percentage: uint8(100)}
		_, err := interval.Jitter(nil)
		g.Expect(err).To(MatchError(errInvalidIntervalJitter))
	})

	t.Run("zero percentage keeps the interval", func(t *testing.T) {
		g := NewWithT(t)

		interval := &Interval{}
		fn, err := interval.Jitter(nil)
		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(fn(30 * time.Minute)).To(Equal(30 * time.Minute))
	})

	t.Run("percentage bounds the interval", func(t *testing.T) {
		g := NewWithT(t)

		interval := &Interval{Percentage: 10}
		fn, err := interval.Jitter(rand.New(rand.NewSource(int64(12345))))
		g.Expect(err).ToNot(HaveOccurred())

		d := 30 * time.Minute
		for i := 0; i < 100; i++ {
			got := fn(d)
			g.Expect(got).To(BeNumerically(">=", float64(d)*0.9))
			g.Expect(got).To(BeNumerically("<=", float64(d)*1.1))
		}
	})
}
