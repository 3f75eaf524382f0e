// Package utils provides named logrus loggers with a log4j-style console
// layout and small environment helpers.
package utils
