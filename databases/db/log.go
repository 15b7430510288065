package db

import (
	"fmt"
	"strings"

	"github.com/ahoy-jon/SQLContainer-sub000/log"
)

// sensitiveFieldPatterns contains patterns that indicate sensitive data
var sensitiveFieldPatterns = []string{
	"password",
	"passwd",
	"secret",
	"token",
	"credential",
	"pin",
	"auth",
	"private",
	"apikey",
	"api_key",
	"otp",
	"cvv",
	"ssn",
	"credit_card",
	"card_number",
}

// maskedValue is the string used to replace sensitive values
const maskedValue = "***MASKED***"

// isSensitiveField checks if a field name indicates sensitive data
func isSensitiveField(fieldName string) bool {
	lowerField := strings.ToLower(fieldName)
	for _, pattern := range sensitiveFieldPatterns {
		if strings.Contains(lowerField, pattern) {
			return true
		}
	}
	return false
}

// maskSensitiveArgs masks the values bound to sensitive columns. columns gives
// the column of each argument position when known.
func maskSensitiveArgs(columns []string, args []any) []any {
	if len(args) == 0 {
		return nil
	}
	masked := make([]any, len(args))
	copy(masked, args)
	for i := range masked {
		if i < len(columns) && isSensitiveField(columns[i]) {
			masked[i] = maskedValue
		}
	}
	return masked
}

// formatArgsForLog formats arguments for logging, truncating long values
func formatArgsForLog(args []any) string {
	if len(args) == 0 {
		return "[]"
	}

	parts := make([]string, len(args))
	for i, arg := range args {
		argStr := fmt.Sprintf("%v", arg)
		if len(argStr) > 100 {
			argStr = argStr[:100] + "...(truncated)"
		}
		parts[i] = argStr
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func logOrDefault(l *log.DXLog) *log.DXLog {
	if l == nil {
		return &log.Log
	}
	return l
}

// LogDBOperation logs a database operation with SQL and arguments
func LogDBOperation(l *log.DXLog, operation, sqlStatement string, args []any, err error) {
	LogDBOperationWithColumns(l, operation, sqlStatement, nil, args, err)
}

// LogDBOperationWithColumns is LogDBOperation for statements whose argument
// columns are known, so values of sensitive columns are masked.
func LogDBOperationWithColumns(l *log.DXLog, operation, sqlStatement string, columns []string, args []any, err error) {
	l = logOrDefault(l)
	argsStr := formatArgsForLog(maskSensitiveArgs(columns, args))

	if err != nil {
		l.Errorf(err, "DB_%s_ERROR sql=%s args=%s", operation, sqlStatement, argsStr)
	} else {
		l.Debugf("DB_%s sql=%s args=%s", operation, sqlStatement, argsStr)
	}
}
