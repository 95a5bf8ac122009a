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
	"reflect"
	"strings"

	"github.com/jinzhu/inflection"
	"github.com/tomoncle/doctools/database"
)

// Register adds the collection of T to the collections created when the
// global database is initialized.
func Register[T any](priority int) {
	database.RegisterCollection(CollectionNameOf[T](), priority)
}

// CollectionNamer is implemented by entity types that choose their own
// collection name.
type CollectionNamer interface {
	CollectionName() string
}

// CollectionNameOf returns the collection an entity type is stored in: the
// name returned by CollectionNamer when T implements it, otherwise the
// English plural of the type name ("Order" becomes "Orders", "Person"
// becomes "People").
func CollectionNameOf[T any]() string {
	var zero T
	if namer, ok := any(&zero).(CollectionNamer); ok {
		if name := namer.CollectionName(); name != "" {
			return name
		}
	}
	return PluralName(reflect.TypeOf((*T)(nil)).Elem())
}

// PluralName pluralizes the name of t, ignoring pointer indirections and
// generic type arguments.
func PluralName(t reflect.Type) string {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	name := t.Name()
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		return ""
	}
	return inflection.Plural(name)
}
