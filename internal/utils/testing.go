// Copyright © 2024 Kaleido, Inc.
//
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package utils

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/otiai10/copy"
)

// ActivateMock routes the client through httpmock until the test ends.
func ActivateMock(t testing.TB, client *http.Client) {
	httpmock.ActivateNonDefault(client)
	t.Cleanup(httpmock.DeactivateAndReset)
}

// Chdir switches the working directory until the test ends.
func Chdir(t testing.TB, dir string) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("unable to read the working directory: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("unable to change to %s: %v", dir, err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

// NewProject creates an empty project directory holding a copy of the
// artifacts in artifactsDir, and switches to it until the test ends.
func NewProject(t testing.TB, artifactsDir string) string {
	src, err := filepath.Abs(artifactsDir)
	if err != nil {
		t.Fatalf("unable to resolve %s: %v", artifactsDir, err)
	}
	dir := t.TempDir()
	if err := copy.Copy(src, filepath.Join(dir, "artifacts")); err != nil {
		t.Fatalf("unable to copy artifacts: %v", err)
	}
	Chdir(t, dir)
	return dir
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("unable to create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("unable to write %s: %v", path, err)
	}
}

// checks if exp value and act value are  equal
func Equals(tb testing.TB, exp, act interface{}) {
	if !reflect.DeepEqual(exp, act) {
		_, file, line, _ := runtime.Caller(1)
		fmt.Printf("\033[31m%s:%d:\n\n\texp: %#v\n\n\tgot: %#v\033[39m\n\n", filepath.Base(file), line, exp, act)
		tb.FailNow()
	}
}

// ReadFileToString reads the contents of a file and returns it as a string.
func ReadFileToString(filePath string) (string, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return "", err
	}
	return string(content), nil
}
