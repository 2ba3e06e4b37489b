/*
 * Copyright (c) 2025, WSO2 LLC. (http://www.wso2.com).
 *
 * WSO2 LLC. licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

package client

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/lib/pq"
)

// StringValue reads a text column from a scanned row.
func StringValue(row map[string]interface{}, column string) string {

	switch v := row[column].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return ""
	}
}

// IntValue reads an integer column from a scanned row.
func IntValue(row map[string]interface{}, column string) int {

	switch v := row[column].(type) {
	case int64:
		return int(v)
	case int32:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	case []byte:
		n, _ := strconv.Atoi(string(v))
		return n
	default:
		return 0
	}
}

// FloatValue reads a numeric column from a scanned row.
func FloatValue(row map[string]interface{}, column string) float64 {

	switch v := row[column].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case []byte:
		f, _ := strconv.ParseFloat(string(v), 64)
		return f
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	default:
		return 0
	}
}

// BoolValue reads a boolean column from a scanned row.
func BoolValue(row map[string]interface{}, column string) bool {

	v, _ := row[column].(bool)
	return v
}

// TimeValue reads a timestamp column from a scanned row.
func TimeValue(row map[string]interface{}, column string) time.Time {

	if v, ok := row[column].(time.Time); ok {
		return v.UTC()
	}
	return time.Time{}
}

// NullableTimeValue reads a nullable timestamp column from a scanned row.
func NullableTimeValue(row map[string]interface{}, column string) *time.Time {

	v, ok := row[column].(time.Time)
	if !ok {
		return nil
	}
	t := v.UTC()
	return &t
}

// NullableFloatValue reads a nullable numeric column from a scanned row.
func NullableFloatValue(row map[string]interface{}, column string) *float64 {

	if row[column] == nil {
		return nil
	}
	f := FloatValue(row, column)
	return &f
}

// StringArrayValue reads a text[] column from a scanned row.
func StringArrayValue(row map[string]interface{}, column string) []string {

	var values pq.StringArray
	if err := values.Scan(row[column]); err != nil {
		return nil
	}
	return values
}

// JSONValue decodes a json or jsonb column into target.
func JSONValue(row map[string]interface{}, column string, target interface{}) error {

	var raw []byte
	switch v := row[column].(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return nil
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, target)
}
