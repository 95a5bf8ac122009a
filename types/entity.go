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

package types

import (
	"time"

	"github.com/google/uuid"
)

// Document field names shared by every entity.
const (
	IDField           = "_id"
	UpdateMomentField = "UpdateMoment"
)

// Entity is the contract a stored record must satisfy. It is normally
// implemented by embedding BaseEntity.
type Entity interface {
	GetID() string
	SetUpdateMoment(t time.Time)
}

// BaseEntity carries the document identifier and the update timestamp.
// Embed it with the inline tag so both fields stay at the document root:
//
//	type Order struct {
//		types.BaseEntity `bson:",inline"`
//		Number string    `bson:"Number"`
//	}
type BaseEntity struct {
	ID           string    `bson:"_id" json:"id"`
	UpdateMoment time.Time `bson:"UpdateMoment" json:"update_moment"`
}

func (e *BaseEntity) GetID() string { return e.ID }

func (e *BaseEntity) SetUpdateMoment(t time.Time) { e.UpdateMoment = t }

// NewID returns a random identifier suitable for BaseEntity.ID.
func NewID() string {
	return uuid.NewString()
}

// NewBaseEntity returns a BaseEntity with a fresh identifier.
func NewBaseEntity() BaseEntity {
	return BaseEntity{ID: NewID()}
}
