/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package repository

import (
	"time"

	"github.com/tomoncle/doctools/database"
)

type options struct {
	collectionName string
	clock          func() time.Time
	logger         database.Logger
}

// Option configures a repository.
type Option func(*options)

// WithCollectionName binds the repository to name instead of the plural of
// the entity type name.
func WithCollectionName(name string) Option {
	return func(o *options) { o.collectionName = name }
}

// WithClock sets the time source used to stamp replaced entities. The
// result is converted to UTC.
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

func WithLogger(logger database.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func newOptions(opts []Option) *options {
	o := &options{clock: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	if o.clock == nil {
		o.clock = time.Now
	}
	if o.logger == nil {
		o.logger = database.GetLogger()
	}
	return o
}
