// Copyright 2026 The Drivefuse Authors
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

package util

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

const parentProcessDir = "/var/generic/drivefuse"

type UtilTest struct {
	suite.Suite
}

func TestUtilSuite(t *testing.T) {
	suite.Run(t, new(UtilTest))
}

func (ts *UtilTest) TestResolveWhenParentProcDirEnvNotSetAndFilePathStartsWithTilda() {
	resolvedPath, err := GetResolvedPath("~/test.txt")

	assert.NoError(ts.T(), err)
	homeDir, err := os.UserHomeDir()
	assert.NoError(ts.T(), err)
	assert.Equal(ts.T(), filepath.Join(homeDir, "test.txt"), resolvedPath)
}

func (ts *UtilTest) TestResolveWhenParentProcDirEnvNotSetAndRelativePath() {
	resolvedPath, err := GetResolvedPath("test.txt")

	assert.NoError(ts.T(), err)
	currentWorkingDir, err := os.Getwd()
	assert.NoError(ts.T(), err)
	assert.Equal(ts.T(), filepath.Join(currentWorkingDir, "test.txt"), resolvedPath)
}

func (ts *UtilTest) TestResolveWhenParentProcDirEnvNotSetAndAbsoluteFilePath() {
	resolvedPath, err := GetResolvedPath("/var/dir/test.txt")

	assert.NoError(ts.T(), err)
	assert.Equal(ts.T(), "/var/dir/test.txt", resolvedPath)
}

func (ts *UtilTest) TestResolveEmptyFilePath() {
	resolvedPath, err := GetResolvedPath("")

	assert.NoError(ts.T(), err)
	assert.Equal(ts.T(), "", resolvedPath)
}

func (ts *UtilTest) TestResolveWhenParentProcDirEnvSetAndRelativePath() {
	os.Setenv(DRIVEFUSE_PARENT_PROCESS_DIR, parentProcessDir)
	defer os.Unsetenv(DRIVEFUSE_PARENT_PROCESS_DIR)

	resolvedPath, err := GetResolvedPath("test.txt")

	assert.NoError(ts.T(), err)
	assert.Equal(ts.T(), filepath.Join(parentProcessDir, "test.txt"), resolvedPath)
}

func (ts *UtilTest) TestResolveWhenParentProcDirEnvSetAndAbsoluteFilePath() {
	os.Setenv(DRIVEFUSE_PARENT_PROCESS_DIR, parentProcessDir)
	defer os.Unsetenv(DRIVEFUSE_PARENT_PROCESS_DIR)

	resolvedPath, err := GetResolvedPath("/var/dir/test.txt")

	assert.NoError(ts.T(), err)
	assert.Equal(ts.T(), "/var/dir/test.txt", resolvedPath)
}

func (ts *UtilTest) TestStringifyReturnsMarshalledString() {
	sampleNestedValue := nestedCustomType{
		SomeField: 10,
		SomeOther: map[string]int{"1": 1, "2": 2},
	}
	customObject := &customTypeForSuccess{
		Value:       "test_value",
		NestedValue: sampleNestedValue,
	}

	actual, err := Stringify(customObject)

	assert.NoError(ts.T(), err)
	assert.Equal(ts.T(), `{"Value":"test_value","NestedValue":{"SomeField":10,"SomeOther":{"1":1,"2":2}}}`, actual)
}

func (ts *UtilTest) TestStringifyReturnsEmptyStringWhenMarshalErrorsOut() {
	customInstance := customTypeForError{value: "example"}

	actual, err := Stringify(customInstance)

	assert.Error(ts.T(), err)
	assert.Equal(ts.T(), "", actual)
}

type customTypeForSuccess struct {
	Value       string
	NestedValue nestedCustomType
}
type nestedCustomType struct {
	SomeField int
	SomeOther map[string]int
}
type customTypeForError struct {
	value string
}

func (c customTypeForError) MarshalJSON() ([]byte, error) {
	return nil, errors.New("intentional error during JSON marshaling")
}

func (ts *UtilTest) TestMiBsToBytes() {
	cases := []struct {
		mib   uint64
		bytes uint64
	}{
		{mib: 0, bytes: 0},
		{mib: 1, bytes: 1048576},
		{mib: 10, bytes: 10485760},
		{mib: 1024, bytes: 1073741824},
	}

	for _, tc := range cases {
		assert.Equal(ts.T(), tc.bytes, MiBsToBytes(tc.mib))
	}
}

func (ts *UtilTest) TestBytesToHigherMiBs() {
	cases := []struct {
		bytes uint64
		mib   uint64
	}{
		{bytes: 0, mib: 0},
		{bytes: 1048576, mib: 1},
		{bytes: 1, mib: 1},
		{bytes: math.MaxUint64, mib: 0x100000000000},
	}

	for _, tc := range cases {
		assert.Equal(ts.T(), tc.mib, BytesToHigherMiBs(tc.bytes))
	}
}

func (ts *UtilTest) TestIsolateContextFromParentContext() {
	parentCtx, parentCtxCancel := context.WithCancel(context.Background())

	newCtx, newCtxCancel := IsolateContextFromParentContext(parentCtx)
	parentCtxCancel()

	assert.NoError(ts.T(), newCtx.Err())
	newCtxCancel()
	assert.ErrorIs(ts.T(), newCtx.Err(), context.Canceled)
}
