package db

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/vanishedwanderer/grabbler/src/oops"
)

var typeMap = pgtype.NewMap()

var reColumnsPlaceholder = regexp.MustCompile(`\$columns({(.*?)})?`)

/*
ExpandColumns replaces the $columns placeholder in query with the columns of
struct type T, taken from its `db:"column_name"` tags. $columns{prefix}
qualifies every column with a table name or alias:

	type Test struct {
		ID   int    `db:"id"`
		Text string `db:"text"`
	}
	db.ExpandColumns[Test]("SELECT $columns{t} FROM test AS t")
	// SELECT t.id, t.text FROM test AS t

The columns are listed in the same order StructMapper scans them in.
*/
func ExpandColumns[T any](query string) string {
	var destExample T
	destType := reflect.TypeOf(destExample)

	return reColumnsPlaceholder.ReplaceAllStringFunc(query, func(match string) string {
		prefix := reColumnsPlaceholder.FindStringSubmatch(match)[2]
		names, _, err := getColumnNamesAndPaths(destType, nil, prefix)
		if err != nil {
			panic(oops.New(err, "$columns can only be used with a struct that has db tags"))
		}
		return strings.Join(names, ", ")
	})
}

// StructMapper returns a RowMapper that scans each column, by position, into
// the field of T tagged for it. The query must select exactly the columns
// produced by ExpandColumns, in that order. Nested structs tagged with `db`
// are flattened; NULLs leave pointer fields nil.
func StructMapper[T any]() RowMapper[T] {
	var destExample T
	destType := reflect.TypeOf(destExample)

	_, paths, err := getColumnNamesAndPaths(destType, nil, "")
	if err != nil {
		panic(oops.New(err, "cannot build a struct mapper"))
	}

	return func(row Row) (T, error) {
		var result T
		resultPtr := reflect.ValueOf(&result)

		dests := make([]any, len(paths))
		for i, path := range paths {
			field, _ := followPathThroughStructs(resultPtr, path)
			dests[i] = field.Addr().Interface()
		}
		err := row.Scan(dests...)
		return result, err
	}
}

// NewStructConfiguration is NewConfiguration with the prefix expanded by
// ExpandColumns and a StructMapper.
func NewStructConfiguration[T any](queryPrefix string) Configuration[T] {
	return NewConfiguration(ExpandColumns[T](queryPrefix), StructMapper[T]())
}

// A path to a particular field in query's destination type. Each index in the slice
// corresponds to a field index for use with Field on a reflect.Type or reflect.Value.
type fieldPath []int

func getColumnNamesAndPaths(destType reflect.Type, pathSoFar []int, prefix string) (names []string, paths []fieldPath, err error) {
	var columnNames []string
	var fieldPaths []fieldPath

	if destType.Kind() == reflect.Ptr {
		destType = destType.Elem()
	}

	if destType.Kind() != reflect.Struct {
		return nil, nil, oops.New(nil, "can only get column names and paths from a struct, got type '%v' (at prefix '%v')", destType.Name(), prefix)
	}

	for i := 0; i < destType.NumField(); i++ {
		field := destType.Field(i)
		columnName := field.Tag.Get("db")

		path := make([]int, len(pathSoFar))
		copy(path, pathSoFar)
		path = append(path, i)

		if columnName == "" {
			// Untagged embedded structs contribute their tagged fields as if
			// they were declared directly.
			if field.Anonymous && field.Type.Kind() == reflect.Struct {
				subCols, subPaths, err := getColumnNamesAndPaths(field.Type, path, prefix)
				if err != nil {
					return nil, nil, err
				}
				columnNames = append(columnNames, subCols...)
				fieldPaths = append(fieldPaths, subPaths...)
			}
			continue
		}
		if !field.IsExported() {
			return nil, nil, oops.New(nil, "field '%s' in type %s is tagged but not exported", field.Name, destType)
		}

		fieldType := field.Type
		if fieldType.Kind() == reflect.Ptr {
			fieldType = fieldType.Elem()
		}

		if typeIsQueryable(fieldType) {
			fullName := columnName
			if prefix != "" {
				fullName = prefix + "." + columnName
			}
			columnNames = append(columnNames, fullName)
			fieldPaths = append(fieldPaths, path)
		} else if fieldType.Kind() == reflect.Struct {
			subPrefix := columnName
			if prefix != "" {
				subPrefix = prefix + "_" + columnName
			}
			subCols, subPaths, err := getColumnNamesAndPaths(fieldType, path, subPrefix)
			if err != nil {
				return nil, nil, err
			}
			columnNames = append(columnNames, subCols...)
			fieldPaths = append(fieldPaths, subPaths...)
		} else {
			return nil, nil, oops.New(nil, "field '%s' in type %s has invalid type '%s'", field.Name, destType, field.Type)
		}
	}

	return columnNames, fieldPaths, nil
}

/*
Values of these kinds are ok to query even if they are not directly understood by pgtype.
This is common for custom types like:

	type ThreadType int
*/
var queryableKinds = []reflect.Kind{
	reflect.Int,
	reflect.Int32,
	reflect.Int64,
	reflect.String,
	reflect.Bool,
}

/*
Checks if we are able to handle a particular type in a database query. This applies only to
primitive types and not structs, since the database only returns individual primitive types
and it is our job to stitch them back together into structs later.
*/
func typeIsQueryable(t reflect.Type) bool {
	if _, isRecognizedByPgtype := typeMap.TypeForValue(reflect.New(t).Elem().Interface()); isRecognizedByPgtype {
		return true
	} else if t == reflect.TypeOf(uuid.UUID{}) {
		return true
	}

	// pgtype doesn't recognize it, but maybe it's a primitive type we can deal with
	k := t.Kind()
	for _, qk := range queryableKinds {
		if k == qk {
			return true
		}
	}

	return false
}

func followPathThroughStructs(structPtrVal reflect.Value, path []int) (reflect.Value, reflect.StructField) {
	if len(path) < 1 {
		panic(oops.New(nil, "can't follow an empty path"))
	}

	if structPtrVal.Kind() != reflect.Ptr || structPtrVal.Elem().Kind() != reflect.Struct {
		panic(oops.New(nil, "structPtrVal must be a pointer to a struct; got value of type %s", structPtrVal.Type()))
	}

	// more informative panic recovery
	var field reflect.StructField
	defer func() {
		if r := recover(); r != nil {
			panic(oops.New(nil, "panic at field '%s': %v", field.Name, r))
		}
	}()

	val := structPtrVal
	for _, i := range path {
		if val.Kind() == reflect.Ptr && val.Type().Elem().Kind() == reflect.Struct {
			if val.IsNil() {
				val.Set(reflect.New(val.Type().Elem()))
			}
			val = val.Elem()
		}
		field = val.Type().Field(i)
		val = val.Field(i)
	}
	return val, field
}
