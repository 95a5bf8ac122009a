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
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Filter is an immutable predicate over document fields. Leaf filters
// compare one field (dotted paths allowed) with a value; group filters
// combine children. A nil *Filter matches every document.
type Filter struct {
	op       Operator
	field    string
	value    any
	children []*Filter
}

// All returns a filter that matches every document.
func All() *Filter { return &Filter{op: OpAll} }

// ByID matches the document whose identifier equals id.
func ByID(id any) *Filter { return Eq(IDField, id) }

func Eq(field string, value any) *Filter { return leaf(OpEq, field, value) }

func Ne(field string, value any) *Filter { return leaf(OpNe, field, value) }

func Gt(field string, value any) *Filter { return leaf(OpGt, field, value) }

func Gte(field string, value any) *Filter { return leaf(OpGte, field, value) }

func Lt(field string, value any) *Filter { return leaf(OpLt, field, value) }

func Lte(field string, value any) *Filter { return leaf(OpLte, field, value) }

// In matches documents whose field equals any of values.
func In(field string, values ...any) *Filter { return leaf(OpIn, field, values) }

// Nin matches documents whose field equals none of values.
func Nin(field string, values ...any) *Filter { return leaf(OpNin, field, values) }

// Exists matches documents where the presence of field equals exists.
func Exists(field string, exists bool) *Filter { return leaf(OpExists, field, exists) }

// And matches documents that satisfy every filter. Nil entries are ignored.
func And(filters ...*Filter) *Filter { return group(OpAnd, filters) }

// Or matches documents that satisfy at least one filter. Nil entries are ignored.
func Or(filters ...*Filter) *Filter { return group(OpOr, filters) }

// Not negates f.
func Not(f *Filter) *Filter {
	if f == nil {
		f = All()
	}
	return &Filter{op: OpNot, children: []*Filter{f}}
}

func leaf(op Operator, field string, value any) *Filter {
	return &Filter{op: op, field: field, value: value}
}

func group(op Operator, filters []*Filter) *Filter {
	children := make([]*Filter, 0, len(filters))
	for _, f := range filters {
		if f == nil || (f.op == OpAll && op == OpAnd) {
			continue
		}
		if f.op == op {
			children = append(children, f.children...)
			continue
		}
		children = append(children, f)
	}
	if op == OpAnd {
		switch len(children) {
		case 0:
			return All()
		case 1:
			return children[0]
		}
	}
	return &Filter{op: op, children: children}
}

// And returns a filter matching f and every one of others.
func (f *Filter) And(others ...*Filter) *Filter {
	return And(append([]*Filter{f}, others...)...)
}

// Or returns a filter matching f or any one of others.
func (f *Filter) Or(others ...*Filter) *Filter {
	return Or(append([]*Filter{f}, others...)...)
}

func (f *Filter) Operator() Operator {
	if f == nil {
		return OpAll
	}
	return f.op
}

func (f *Filter) Field() string {
	if f == nil {
		return ""
	}
	return f.field
}

func (f *Filter) Value() any {
	if f == nil {
		return nil
	}
	return f.value
}

// Values returns the operand list of an In or Nin filter.
func (f *Filter) Values() []any {
	if f == nil {
		return nil
	}
	values, _ := f.value.([]any)
	return values
}

func (f *Filter) Children() []*Filter {
	if f == nil {
		return nil
	}
	return f.children
}

// IDValue returns the identifier operand when f is exactly an equality on
// the identifier field.
func (f *Filter) IDValue() (any, bool) {
	if f == nil || f.op != OpEq || f.field != IDField {
		return nil, false
	}
	return f.value, true
}

// Document renders the filter as a MongoDB query document.
func (f *Filter) Document() bson.D {
	if f == nil {
		return bson.D{}
	}
	switch f.op {
	case OpAll:
		return bson.D{}
	case OpIn, OpNin:
		return bson.D{{Key: f.field, Value: bson.D{{Key: f.op.MongoName(), Value: append(bson.A{}, f.Values()...)}}}}
	case OpAnd, OpOr, OpNot:
		docs := bson.A{}
		for _, c := range f.children {
			docs = append(docs, c.Document())
		}
		if f.op == OpOr && len(docs) == 0 {
			// $or requires a non-empty array; an empty disjunction matches nothing.
			return bson.D{{Key: IDField, Value: bson.D{{Key: "$in", Value: bson.A{}}}}}
		}
		return bson.D{{Key: f.op.MongoName(), Value: docs}}
	default:
		return bson.D{{Key: f.field, Value: bson.D{{Key: f.op.MongoName(), Value: f.value}}}}
	}
}

// String renders a compact, human readable form used in logs.
func (f *Filter) String() string {
	if f == nil {
		return "all"
	}
	switch f.op {
	case OpAll:
		return "all"
	case OpAnd, OpOr:
		parts := make([]string, 0, len(f.children))
		for _, c := range f.children {
			parts = append(parts, c.String())
		}
		return fmt.Sprintf("%s(%s)", f.op.Name(), strings.Join(parts, ", "))
	case OpNot:
		return fmt.Sprintf("not(%s)", f.children[0].String())
	default:
		return fmt.Sprintf("%s %s %v", f.field, f.op.Name(), f.value)
	}
}
