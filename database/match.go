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

package database

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/tomoncle/doctools/types"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// matchDocument evaluates f against a decoded document following MongoDB
// query semantics for the operators types.Filter can express: comparisons
// only match values of the same BSON type class, array fields match when
// any element matches, and $ne/$nin also match missing fields.
func matchDocument(f *types.Filter, doc bson.M) (bool, error) {
	switch f.Operator() {
	case types.OpAll:
		return true, nil
	case types.OpAnd:
		for _, c := range f.Children() {
			ok, err := matchDocument(c, doc)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case types.OpOr:
		for _, c := range f.Children() {
			ok, err := matchDocument(c, doc)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case types.OpNot:
		ok, err := matchDocument(f.Children()[0], doc)
		return !ok, err
	}

	value, present := lookupField(doc, f.Field())
	switch f.Operator() {
	case types.OpExists:
		want, _ := f.Value().(bool)
		return present == want, nil
	case types.OpEq, types.OpNe:
		operand, err := normalizeValue(f.Value())
		if err != nil {
			return false, err
		}
		eq := present && anyElement(value, func(v any) bool { return equalValues(v, operand) })
		if !present && operand == nil {
			eq = true
		}
		if f.Operator() == types.OpNe {
			return !eq, nil
		}
		return eq, nil
	case types.OpIn, types.OpNin:
		operands := make([]any, 0, len(f.Values()))
		for _, v := range f.Values() {
			nv, err := normalizeValue(v)
			if err != nil {
				return false, err
			}
			operands = append(operands, nv)
		}
		in := false
		for _, operand := range operands {
			if (!present && operand == nil) ||
				(present && anyElement(value, func(v any) bool { return equalValues(v, operand) })) {
				in = true
				break
			}
		}
		if f.Operator() == types.OpNin {
			return !in, nil
		}
		return in, nil
	case types.OpGt, types.OpGte, types.OpLt, types.OpLte:
		if !present {
			return false, nil
		}
		operand, err := normalizeValue(f.Value())
		if err != nil {
			return false, err
		}
		op := f.Operator()
		return anyElement(value, func(v any) bool {
			c, ok := compareValues(v, operand)
			if !ok {
				return false
			}
			switch op {
			case types.OpGt:
				return c > 0
			case types.OpGte:
				return c >= 0
			case types.OpLt:
				return c < 0
			default:
				return c <= 0
			}
		}), nil
	}
	return false, fmt.Errorf("unsupported filter operator: %s", f.Operator())
}

// lookupField resolves a dotted path through embedded documents.
func lookupField(doc bson.M, path string) (any, bool) {
	var cur any = doc
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case bson.M:
			v, ok := node[part]
			if !ok {
				return nil, false
			}
			cur = v
		case bson.D:
			found := false
			for _, e := range node {
				if e.Key == part {
					cur, found = e.Value, true
					break
				}
			}
			if !found {
				return nil, false
			}
		default:
			return nil, false
		}
	}
	return cur, true
}

func anyElement(v any, fn func(any) bool) bool {
	if fn(v) {
		return true
	}
	if arr, ok := v.(bson.A); ok {
		for _, e := range arr {
			if fn(e) {
				return true
			}
		}
	}
	return false
}

func equalValues(a, b any) bool {
	if c, ok := compareValues(a, b); ok {
		return c == 0
	}
	return reflect.DeepEqual(a, b)
}

// compareValues orders two scalar values of the same BSON type class. ok is
// false when the values are not comparable.
func compareValues(a, b any) (int, bool) {
	if a == nil && b == nil {
		return 0, true
	}
	if x, ok := asNumber(a); ok {
		if y, ok := asNumber(b); ok {
			return compareNumbers(x, y), true
		}
		return 0, false
	}
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), true
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0, true
			case !x:
				return -1, true
			default:
				return 1, true
			}
		}
	case bson.DateTime:
		if y, ok := b.(bson.DateTime); ok {
			return compareInts(int64(x), int64(y)), true
		}
	case bson.ObjectID:
		if y, ok := b.(bson.ObjectID); ok {
			return strings.Compare(x.Hex(), y.Hex()), true
		}
	}
	return 0, false
}

type number struct {
	isInt bool
	i     int64
	f     float64
}

func asNumber(v any) (number, bool) {
	switch n := v.(type) {
	case int32:
		return number{isInt: true, i: int64(n), f: float64(n)}, true
	case int64:
		return number{isInt: true, i: n, f: float64(n)}, true
	case float64:
		return number{f: n}, true
	}
	return number{}, false
}

func compareNumbers(x, y number) int {
	if x.isInt && y.isInt {
		return compareInts(x.i, y.i)
	}
	switch {
	case x.f < y.f:
		return -1
	case x.f > y.f:
		return 1
	}
	return 0
}

func compareInts(x, y int64) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

// typeRank follows the BSON comparison order for mixed-type sorting.
func typeRank(v any) int {
	switch v.(type) {
	case nil:
		return 1
	case int32, int64, float64:
		return 2
	case string:
		return 3
	case bson.M, bson.D:
		return 4
	case bson.A:
		return 5
	case bson.Binary:
		return 6
	case bson.ObjectID:
		return 7
	case bool:
		return 8
	case bson.DateTime:
		return 9
	}
	return 10
}

// sortDocuments orders docs in place by sorts; missing fields sort as null.
func sortDocuments(docs []storedDocument, sorts []types.Sort) {
	if len(sorts) == 0 {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, s := range sorts {
			a, _ := lookupField(docs[i].fields, s.Field)
			b, _ := lookupField(docs[j].fields, s.Field)
			c, ok := compareValues(a, b)
			if !ok {
				c = compareInts(int64(typeRank(a)), int64(typeRank(b)))
			}
			if c == 0 {
				continue
			}
			if s.Descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}
