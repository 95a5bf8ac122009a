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

// Common illegal/default values used by enums.
const (
	IllegalValue = -1
	IllegalName  = "unknown"
	IllegalDesc  = "unknown"
)

// BaseEnum represents a basic enum contract used by domain types.
type BaseEnum interface {
	IsValid() bool
	Number() int
	String() string
	Desc() string
	Name() string
}

// Operator identifies the kind of a Filter node.
type Operator int

const (
	OpAll Operator = iota
	OpEq
	OpNe
	OpGt
	OpGte
	OpLt
	OpLte
	OpIn
	OpNin
	OpExists
	OpAnd
	OpOr
	OpNot
)

var _ BaseEnum = OpEq

type operatorMeta struct {
	name   string
	mongo  string
	desc   string
	isLeaf bool
}

var operatorTable = map[Operator]operatorMeta{
	OpAll:    {"all", "", "matches every document", false},
	OpEq:     {"eq", "$eq", "field equals value", true},
	OpNe:     {"ne", "$ne", "field does not equal value", true},
	OpGt:     {"gt", "$gt", "field greater than value", true},
	OpGte:    {"gte", "$gte", "field greater than or equal to value", true},
	OpLt:     {"lt", "$lt", "field less than value", true},
	OpLte:    {"lte", "$lte", "field less than or equal to value", true},
	OpIn:     {"in", "$in", "field equals any of the values", true},
	OpNin:    {"nin", "$nin", "field equals none of the values", true},
	OpExists: {"exists", "$exists", "field presence matches value", true},
	OpAnd:    {"and", "$and", "all children match", false},
	OpOr:     {"or", "$or", "any child matches", false},
	OpNot:    {"not", "$nor", "child does not match", false},
}

func (o Operator) IsValid() bool {
	_, ok := operatorTable[o]
	return ok
}

func (o Operator) Number() int {
	if !o.IsValid() {
		return IllegalValue
	}
	return int(o)
}

func (o Operator) String() string { return o.Name() }

func (o Operator) Name() string {
	if m, ok := operatorTable[o]; ok {
		return m.name
	}
	return IllegalName
}

func (o Operator) Desc() string {
	if m, ok := operatorTable[o]; ok {
		return m.desc
	}
	return IllegalDesc
}

// MongoName returns the MongoDB query operator this operator renders to.
func (o Operator) MongoName() string {
	return operatorTable[o].mongo
}

// IsLeaf reports whether the operator compares a single field to a value.
func (o Operator) IsLeaf() bool {
	return operatorTable[o].isLeaf
}
