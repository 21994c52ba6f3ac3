/* Copyright 2025 Parceltrack Authors
 *
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

// Package log prints messages to the console for interactive commands.
// Every line is indented under the command and led by a status symbol.
package log

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

const (
	debugEnvName  = "PARCELTRACK_DEBUG"
	debugEnvValue = "1"
)

var (
	// ColorRed is a red foreground color
	ColorRed = color.New(color.FgRed)
	// ColorGreen is a green foreground color
	ColorGreen = color.New(color.FgGreen)
	// ColorYellow is a yellow foreground color
	ColorYellow = color.New(color.FgYellow)
	// ColorBlue is a blue foreground color
	ColorBlue = color.New(color.FgBlue)
	// ColorGray is a gray foreground color
	ColorGray = color.New(color.FgHiBlack)
	// ColorBarcode highlights barcodes so they stand out of parcel lines
	ColorBarcode = color.New(color.FgCyan, color.Bold)
)

// Output is where messages are printed
var Output io.Writer = color.Output

const indent = "  "

// countWidth aligns the counts of a report
const countWidth = 22

func printf(symbol, msg string, v ...interface{}) {
	fmt.Fprintf(Output, "%s%s %s", indent, symbol, fmt.Sprintf(msg, v...))
}

// Infof prints information
func Infof(msg string, v ...interface{}) {
	printf(ColorBlue.Sprint("•"), msg, v...)
}

// Successf prints a success message
func Successf(msg string, v ...interface{}) {
	printf(ColorGreen.Sprint("✔"), msg, v...)
}

// Warnf prints a warning, such as rows still waiting to be synced
func Warnf(msg string, v ...interface{}) {
	printf(ColorYellow.Sprint("!"), msg, v...)
}

// Errorf prints an error message
func Errorf(msg string, v ...interface{}) {
	printf(ColorRed.Sprint("⨯"), msg, v...)
}

// Plainf prints a message without a symbol
func Plainf(msg string, v ...interface{}) {
	fmt.Fprintf(Output, "%s%s", indent, fmt.Sprintf(msg, v...))
}

// Barcode returns the barcode highlighted for a parcel line
func Barcode(code string) string {
	if code == "" {
		return ColorGray.Sprint("(no barcode)")
	}

	return ColorBarcode.Sprint(code)
}

// Countf prints one row of a report. Zero counts are dimmed.
func Countf(n int, label string, v ...interface{}) {
	text := fmt.Sprintf("%-*s %d", countWidth, fmt.Sprintf(label, v...), n)
	if n == 0 {
		text = ColorGray.Sprint(text)
	}

	fmt.Fprintf(Output, "%s%s%s\n", indent, indent, text)
}

func isDebug() bool {
	return os.Getenv(debugEnvName) == debugEnvValue
}

// Debug prints to the console if PARCELTRACK_DEBUG is set
func Debug(msg string, v ...interface{}) {
	if isDebug() {
		fmt.Fprintf(Output, "%s %s", ColorGray.Sprint("DEBUG:"), fmt.Sprintf(msg, v...))
	}
}

// Askf prints a question. A masked question is printed with a lock icon.
func Askf(msg string, masked bool, v ...interface{}) {
	symbol := "?"
	if masked {
		symbol = "🔒"
	}

	fmt.Fprintf(Output, "%s%s %s: ", indent, ColorGreen.Sprint(symbol), fmt.Sprintf(msg, v...))
}
