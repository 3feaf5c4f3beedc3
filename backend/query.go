/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package backend

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Filter is a single column condition ("plant=eq.PLT1").
type Filter struct {
	Column   string
	Operator string
	Value    string
}

// Eq matches rows where column equals value.
func Eq(column, value string) Filter {
	return Filter{Column: column, Operator: "eq", Value: value}
}

// Gte matches rows where column is greater than or equal to value.
func Gte(column, value string) Filter {
	return Filter{Column: column, Operator: "gte", Value: value}
}

// Lte matches rows where column is less than or equal to value.
func Lte(column, value string) Filter {
	return Filter{Column: column, Operator: "lte", Value: value}
}

// In matches rows where column is one of values.
func In(column string, values ...string) Filter {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = strconv.Quote(v)
	}
	return Filter{Column: column, Operator: "in", Value: "(" + strings.Join(quoted, ",") + ")"}
}

// Query describes a select request.
type Query struct {
	// Columns is the select list, all columns by default.
	Columns []string
	Filters []Filter
	// Order is a list of "column.asc" / "column.desc" items.
	Order []string
	// Offset and Limit are sent as a Range header. Zero Limit means no range.
	Offset int
	Limit  int
	// Count asks the backend for the exact total row count (returned by Select).
	Count bool
}

func filtersToValues(values url.Values, filters []Filter) url.Values {
	if values == nil {
		values = url.Values{}
	}
	for _, f := range filters {
		values.Add(f.Column, f.Operator+"."+f.Value)
	}
	return values
}

func (q Query) values() url.Values {
	values := url.Values{}
	if len(q.Columns) == 0 {
		values.Set("select", "*")
	} else {
		values.Set("select", strings.Join(q.Columns, ","))
	}
	if len(q.Order) != 0 {
		values.Set("order", strings.Join(q.Order, ","))
	}
	return filtersToValues(values, q.Filters)
}

func (q Query) rangeHeader() string {
	if q.Limit <= 0 {
		return ""
	}
	return fmt.Sprintf("%d-%d", q.Offset, q.Offset+q.Limit-1)
}

// parseContentRange extracts the total from "0-19/57" or "*/0". Unknown total ("0-19/*") is -1.
func parseContentRange(header string) (int, error) {
	if header == "" {
		return -1, nil
	}
	slash := strings.LastIndexByte(header, '/')
	if slash == -1 {
		return 0, fmt.Errorf("malformed Content-Range %q", header)
	}
	totalStr := header[slash+1:]
	if totalStr == "*" {
		return -1, nil
	}
	total, err := strconv.Atoi(totalStr)
	if err != nil || total < 0 {
		return 0, fmt.Errorf("malformed Content-Range %q", header)
	}
	return total, nil
}
