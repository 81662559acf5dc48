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

// Package jitter spreads periodic work over time by randomizing the length
// of each wait around a configured interval.
package jitter

import (
	"errors"
	"math/rand"
	"time"

	"github.com/spf13/pflag"
)

const flagIntervalJitter = "interval-jitter-percentage"

var errInvalidIntervalJitter = errors.New("the interval jitter percentage must be a non-negative value and less than 100")

// Duration is a function that takes a duration and returns a modified duration
// with jitter added.
type Duration func(time.Duration) time.Duration

// NoJitter returns a Duration function that will return the given duration
// without modification.
func NoJitter(d time.Duration) time.Duration {
	return d
}

// Percent returns a Duration function that will modify the given duration
// by a random percentage between 0 and p, with the sign chosen randomly.
//
// For example, if percent is 0.1, the returned Duration will modify the duration
// by a random percentage between -10% and 10%.
//
// When p <= 0 or p >= 1, duration is returned without a modification.
// If r is nil, a new rand.Rand will be created using the current time as the
// seed. The returned function must not be called concurrently.
func Percent(p float64, r *rand.Rand) Duration {
	r = defaultOrRand(r)
	if p <= 0 || p >= 1 {
		return NoJitter
	}
	return func(d time.Duration) time.Duration {
		randomP := p * (2*r.Float64() - 1)
		return time.Duration(float64(d) * (1 + randomP))
	}
}

// defaultOrRand returns the given rand.Rand if it is not nil, otherwise it
// returns a new rand.Rand
func defaultOrRand(r *rand.Rand) *rand.Rand {
	if r == nil {
		return rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return r
}

// Interval is used to configure the jitter of a periodic task using command
// line flags. To use it, create an Interval, call BindFlags, and once the
// flags are parsed call Jitter to obtain the Duration function.
//
// The default percentage is zero: every wait lasts exactly the configured
// interval unless an operator opts in.
type Interval struct {
	// Percentage of jitter to apply to interval durations. A value of 10
	// will apply a jitter of +/-10% to the interval duration. It can not be negative,
	// and must be less than 100.
	Percentage uint8
}

// BindFlags will parse the given pflag.FlagSet and load the interval jitter
// with a default value of 0%.
func (o *Interval) BindFlags(fs *pflag.FlagSet) {
	o.BindFlagsWithDefault(fs, 0)
}

// BindFlagsWithDefault will parse the given pflag.FlagSet and load the interval
// jitter. A negative defaultPercentage is treated as zero.
func (o *Interval) BindFlagsWithDefault(fs *pflag.FlagSet, defaultPercentage int) {
	if defaultPercentage < 0 {
		defaultPercentage = 0
	}
	fs.Uint8Var(&o.Percentage, flagIntervalJitter, uint8(defaultPercentage),
		"Percentage of jitter to apply to the refresh interval. A value of 10 "+
			"will apply a jitter of +/-10% to the interval duration. It cannot be "+
			"negative, and must be less than 100.")
}

// Jitter returns the Duration function for the configured percentage, using
// r as the source of randomness (or a time seeded one when r is nil).
func (o *Interval) Jitter(r *rand.Rand) (Duration, error) {
	if o.Percentage >= 100 {
		return nil, errInvalidIntervalJitter
	}
	if o.Percentage == 0 {
		return NoJitter, nil
	}
	return Percent(float64(o.Percentage)/100.0, r), nil
}
