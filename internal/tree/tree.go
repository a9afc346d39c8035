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

// Package tree owns the inode table, the file-metadata table, and the
// inode allocator. It is not itself safe for concurrent use: the VFS
// adaptor serializes every callback before touching the store.
package tree

import "github.com/cloudmount/drivefuse/internal/driveapi"

// RootInodeNumber is the fixed inode number of the mount root.
const RootInodeNumber = 1

// Inode is one entry of the inode table: a parent pointer and the set of
// children known so far (populated lazily by a directory listing).
type Inode struct {
	Number   uint64
	Parent   uint64
	Children map[string]uint64
}

// Store holds the inode table and the parallel file-metadata table, keyed
// by inode number, plus the monotonic inode allocator.
type Store struct {
	nextInode uint64
	inodes    map[uint64]*Inode
	files     map[uint64]driveapi.RemoteFile
}

// New returns an empty store. Call InsertRoot before using it.
func New() *Store {
	return &Store{
		nextInode: RootInodeNumber + 1,
		inodes:    make(map[uint64]*Inode),
		files:     make(map[uint64]driveapi.RemoteFile),
	}
}

// AllocateInode hands out the next inode number. Implementations may
// assume a realistic process lifetime never exhausts a 64-bit counter.
func (s *Store) AllocateInode() uint64 {
	ino := s.nextInode
	s.nextInode++
	return ino
}

// InsertRoot installs the root inode and its file record, at init.
func (s *Store) InsertRoot(file driveapi.RemoteFile) {
	s.inodes[RootInodeNumber] = &Inode{
		Number:   RootInodeNumber,
		Parent:   0,
		Children: make(map[string]uint64),
	}
	s.files[RootInodeNumber] = file
}

// GetInode returns the inode entry for ino, if present.
func (s *Store) GetInode(ino uint64) (*Inode, bool) {
	in, ok := s.inodes[ino]
	return in, ok
}

// GetFile returns the file record for ino, if present.
func (s *Store) GetFile(ino uint64) (driveapi.RemoteFile, bool) {
	f, ok := s.files[ino]
	return f, ok
}

// SetFile replaces the file record for an already-allocated ino.
func (s *Store) SetFile(ino uint64, file driveapi.RemoteFile) {
	s.files[ino] = file
}

// SetInode replaces the inode entry for an already-allocated ino.
func (s *Store) SetInode(ino uint64, in *Inode) {
	s.inodes[ino] = in
}

// ReconcileChildren merges a fresh directory listing into parentIno's
// children: listed names not yet present get a newly allocated inode;
// listed names already present keep their inode (and get their file
// record refreshed); previously-present names absent from the listing are
// removed, inode and file record both. The result does not depend on the
// iteration order of listing.
func (s *Store) ReconcileChildren(parentIno uint64, listing []driveapi.RemoteFile) {
	parent, ok := s.inodes[parentIno]
	if !ok {
		return
	}

	listed := make(map[string]driveapi.RemoteFile, len(listing))
	for _, f := range listing {
		listed[f.Name] = f
	}

	for name, childIno := range parent.Children {
		if _, ok := listed[name]; !ok {
			delete(parent.Children, name)
			delete(s.inodes, childIno)
			delete(s.files, childIno)
		}
	}

	for name, file := range listed {
		if childIno, ok := parent.Children[name]; ok {
			s.files[childIno] = file
			continue
		}
		childIno := s.AllocateInode()
		parent.Children[name] = childIno
		s.inodes[childIno] = &Inode{Number: childIno, Parent: parentIno, Children: make(map[string]uint64)}
		s.files[childIno] = file
	}
}
