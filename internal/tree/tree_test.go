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

package tree

import (
	"testing"

	"github.com/cloudmount/drivefuse/internal/driveapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertRootCreatesRootInode(t *testing.T) {
	s := New()
	s.InsertRoot(driveapi.RemoteFile{Name: "drivefuse", Type: driveapi.FileTypeFolder, Size: 1000})

	in, ok := s.GetInode(RootInodeNumber)
	require.True(t, ok)
	assert.Equal(t, uint64(0), in.Parent)
	assert.Empty(t, in.Children)

	file, ok := s.GetFile(RootInodeNumber)
	require.True(t, ok)
	assert.EqualValues(t, 1000, file.Size)
}

func TestAllocateInodeIsMonotonicAndSkipsRoot(t *testing.T) {
	s := New()
	a := s.AllocateInode()
	b := s.AllocateInode()

	assert.NotEqual(t, uint64(RootInodeNumber), a)
	assert.Less(t, a, b)
}

func TestReconcileChildrenAddsNewEntries(t *testing.T) {
	s := New()
	s.InsertRoot(driveapi.RemoteFile{Name: "drivefuse", Type: driveapi.FileTypeFolder})

	s.ReconcileChildren(RootInodeNumber, []driveapi.RemoteFile{
		{Name: "docs", Type: driveapi.FileTypeFolder},
		{Name: "photo.jpg", Type: driveapi.FileTypeFile, Size: 1024},
	})

	root, _ := s.GetInode(RootInodeNumber)
	require.Len(t, root.Children, 2)

	docsIno := root.Children["docs"]
	docsFile, ok := s.GetFile(docsIno)
	require.True(t, ok)
	assert.Equal(t, driveapi.FileTypeFolder, docsFile.Type)

	photoIno := root.Children["photo.jpg"]
	photoFile, ok := s.GetFile(photoIno)
	require.True(t, ok)
	assert.EqualValues(t, 1024, photoFile.Size)
}

func TestReconcileChildrenPreservesInodeAcrossRelisting(t *testing.T) {
	s := New()
	s.InsertRoot(driveapi.RemoteFile{Name: "drivefuse", Type: driveapi.FileTypeFolder})
	s.ReconcileChildren(RootInodeNumber, []driveapi.RemoteFile{
		{Name: "a", Type: driveapi.FileTypeFile},
		{Name: "b", Type: driveapi.FileTypeFile},
	})
	root, _ := s.GetInode(RootInodeNumber)
	inoA := root.Children["a"]
	inoB := root.Children["b"]

	s.ReconcileChildren(RootInodeNumber, []driveapi.RemoteFile{
		{Name: "a", Type: driveapi.FileTypeFile},
		{Name: "c", Type: driveapi.FileTypeFile},
	})

	root, _ = s.GetInode(RootInodeNumber)
	assert.Equal(t, inoA, root.Children["a"], "inode for 'a' must be preserved across relisting")
	assert.NotContains(t, root.Children, "b")
	assert.Contains(t, root.Children, "c")

	_, ok := s.GetInode(inoB)
	assert.False(t, ok, "removed child's inode entry must be dropped")
	_, ok = s.GetFile(inoB)
	assert.False(t, ok, "removed child's file record must be dropped")
}

func TestReconcileChildrenIsOrderIndependent(t *testing.T) {
	s1 := New()
	s1.InsertRoot(driveapi.RemoteFile{Name: "drivefuse", Type: driveapi.FileTypeFolder})
	s1.ReconcileChildren(RootInodeNumber, []driveapi.RemoteFile{
		{Name: "a", Type: driveapi.FileTypeFile},
		{Name: "b", Type: driveapi.FileTypeFile},
		{Name: "c", Type: driveapi.FileTypeFile},
	})

	s2 := New()
	s2.InsertRoot(driveapi.RemoteFile{Name: "drivefuse", Type: driveapi.FileTypeFolder})
	s2.ReconcileChildren(RootInodeNumber, []driveapi.RemoteFile{
		{Name: "c", Type: driveapi.FileTypeFile},
		{Name: "a", Type: driveapi.FileTypeFile},
		{Name: "b", Type: driveapi.FileTypeFile},
	})

	r1, _ := s1.GetInode(RootInodeNumber)
	r2, _ := s2.GetInode(RootInodeNumber)
	assert.ElementsMatch(t, keys(r1.Children), keys(r2.Children))
}

func TestReconcileChildrenOnUnknownParentIsNoop(t *testing.T) {
	s := New()
	assert.NotPanics(t, func() {
		s.ReconcileChildren(999, []driveapi.RemoteFile{{Name: "x"}})
	})
}

func keys(m map[string]uint64) []string {
	ks := make([]string, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	return ks
}
