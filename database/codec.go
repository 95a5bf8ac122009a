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
	"math"
	"reflect"

	"github.com/tomoncle/doctools/types"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Documents kept by the SQL store are canonical extended JSON, so they
// round-trip through the same bson codec (and struct tags) as MongoDB.

// normalizeValue passes v through the bson codec so Go values compare with
// decoded document values: int becomes int32/int64, time.Time becomes
// bson.DateTime, structs become bson.M and slices become bson.A.
func normalizeValue(v any) (any, error) {
	raw, err := bson.Marshal(bson.D{{Key: "v", Value: v}})
	if err != nil {
		return nil, err
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m["v"], nil
}

// documentKey maps an identifier to the value stored in the id column.
// Numerically equal identifiers share a key, so int32(1), int64(1) and 1.0
// address the same document.
func documentKey(id any) (string, error) {
	v, err := normalizeValue(id)
	if err != nil {
		return "", err
	}
	switch n := v.(type) {
	case string:
		return n, nil
	case int32:
		v = int64(n)
	case float64:
		if n == math.Trunc(n) && math.Abs(n) < math.MaxInt64 {
			v = int64(n)
		}
	}
	b, err := bson.MarshalExtJSON(bson.D{{Key: "v", Value: v}}, true, false)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// encodeDocument marshals doc and returns its id column value together with
// the extended JSON body. A document without an identifier receives
// fallbackID, or a new ObjectID when fallbackID is nil.
func encodeDocument(doc any, fallbackID any) (key string, body string, err error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return "", "", err
	}
	var d bson.D
	if err := bson.Unmarshal(raw, &d); err != nil {
		return "", "", err
	}

	var id any
	found := false
	for _, e := range d {
		if e.Key == types.IDField {
			id, found = e.Value, true
			break
		}
	}
	if !found {
		id = fallbackID
		if id == nil {
			id = bson.NewObjectID()
		}
		d = append(bson.D{{Key: types.IDField, Value: id}}, d...)
	}

	key, err = documentKey(id)
	if err != nil {
		return "", "", err
	}
	b, err := bson.MarshalExtJSON(d, true, false)
	if err != nil {
		return "", "", err
	}
	return key, string(b), nil
}

func decodeDocument(body string) (bson.M, error) {
	var m bson.M
	if err := bson.UnmarshalExtJSON([]byte(body), true, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func decodeInto(body string, result any) error {
	return bson.UnmarshalExtJSON([]byte(body), true, result)
}

// decodeAll decodes bodies into results, which must point to a slice of
// structs, struct pointers, or maps.
func decodeAll(bodies []string, results any) error {
	rv := reflect.ValueOf(results)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("results argument must be a pointer to a slice, but was a %T", results)
	}
	sliceType := rv.Elem().Type()
	elemType := sliceType.Elem()
	out := reflect.MakeSlice(sliceType, 0, len(bodies))
	for _, body := range bodies {
		if elemType.Kind() == reflect.Ptr {
			p := reflect.New(elemType.Elem())
			if err := decodeInto(body, p.Interface()); err != nil {
				return err
			}
			out = reflect.Append(out, p)
			continue
		}
		p := reflect.New(elemType)
		if err := decodeInto(body, p.Interface()); err != nil {
			return err
		}
		out = reflect.Append(out, p.Elem())
	}
	rv.Elem().Set(out)
	return nil
}
