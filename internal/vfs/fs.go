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

// Package vfs implements the kernel callback contract (github.com/jacobsa/fuse's
// fuseutil.FileSystem) against the tree store and the read cache. Every
// write path is unimplemented: this is a read-only mount.
package vfs

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"

	"github.com/cloudmount/drivefuse/clock"
	"github.com/cloudmount/drivefuse/internal/cache"
	"github.com/cloudmount/drivefuse/internal/driveapi"
	"github.com/cloudmount/drivefuse/internal/metrics"
	"github.com/cloudmount/drivefuse/internal/tree"
)

// blockSize is the optimal I/O unit advertised to the kernel and used to
// compute a file's block count.
const blockSize = 4 * 1024 * 1024

// initialFileHandle is the first file handle minted by open, chosen to stay
// clear of kernel-reserved handle values.
const initialFileHandle = 2

// drive is the subset of driveapi.Client the VFS adaptor calls directly;
// ranged downloads go through the read cache instead.
type drive interface {
	ListAll(ctx context.Context, parentID string) ([]driveapi.RemoteFile, error)
	GetQuota(ctx context.Context) (driveapi.Quota, error)
}

// FileSystem adapts the tree store and read cache to the kernel callback
// contract. All ops are serialized by mu: the tree store and cache require
// no locking of their own under that assumption.
type FileSystem struct {
	fuseutil.NotImplementedFileSystem

	mu sync.Mutex

	drive drive
	tree  *tree.Store
	cache *cache.Cache

	metrics metrics.Handle
	clk     clock.Clock

	nextHandle uint64
	uid, gid   uint32
}

// New builds a FileSystem. Call Bootstrap before mounting to populate the
// root inode.
func New(d drive, downloader cache.Downloader, metricsHandle metrics.Handle, clk clock.Clock, chunkSizeBytes int64, uid, gid uint32) *FileSystem {
	return &FileSystem{
		drive:      d,
		tree:       tree.New(),
		cache:      cache.New(downloader, metricsHandle, chunkSizeBytes),
		metrics:    metricsHandle,
		clk:        clk,
		nextHandle: initialFileHandle,
		uid:        uid,
		gid:        gid,
	}
}

// Bootstrap creates the root file record (size = account quota usage) and
// installs the root inode. Must be called once, before the mount is
// attached; a quota failure is returned as a wrapped error and the mount
// is not attached.
func (fs *FileSystem) Bootstrap(ctx context.Context) error {
	quota, err := fs.drive.GetQuota(ctx)
	if err != nil {
		return fmt.Errorf("init: getting quota: %w", err)
	}

	now := fs.clk.Now()
	fs.tree.InsertRoot(driveapi.RemoteFile{
		Type:      driveapi.FileTypeFolder,
		Size:      quota.UsedBytes,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return nil
}

func (fs *FileSystem) attributesFor(ino uint64, file driveapi.RemoteFile) fuseops.InodeAttributes {
	perm := os.FileMode(0o644)
	if file.IsDir() {
		perm = 0o755
	}

	var nlink uint64 = 1
	if ino == tree.RootInodeNumber {
		nlink = 2
	}

	return fuseops.InodeAttributes{
		Size:   file.Size,
		Nlink:  nlink,
		Mode:   perm,
		Atime:  time.Unix(0, 0),
		Mtime:  file.UpdatedAt,
		Ctime:  file.CreatedAt,
		Crtime: file.CreatedAt,
		Uid:    fs.uid,
		Gid:    fs.gid,
	}
}

const (
	lookupEntryTTL  = time.Second
	getattrEntryTTL = time.Second
)

// StatFS reports nothing beyond success; the mount carries no meaningful
// free-space notion of its own (display size comes from the root inode).
func (fs *FileSystem) StatFS(_ context.Context, _ *fuseops.StatFSOp) error {
	return nil
}

// LookUpInode resolves a child name within a parent directory, lazily
// populating the parent's children via a readdir side effect if necessary.
func (fs *FileSystem) LookUpInode(ctx context.Context, op *fuseops.LookUpInodeOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	parent, ok := fs.tree.GetInode(uint64(op.Parent))
	if !ok {
		return fuse.ENOENT
	}

	if len(parent.Children) == 0 {
		if err := fs.populateChildrenLocked(ctx, uint64(op.Parent)); err != nil {
			return err
		}
		parent, _ = fs.tree.GetInode(uint64(op.Parent))
	}

	childIno, ok := parent.Children[op.Name]
	if !ok {
		return fuse.ENOENT
	}
	childFile, _ := fs.tree.GetFile(childIno)

	op.Entry.Child = fuseops.InodeID(childIno)
	op.Entry.Attributes = fs.attributesFor(childIno, childFile)
	op.Entry.EntryExpiration = fs.clk.Now().Add(lookupEntryTTL)
	op.Entry.AttributesExpiration = fs.clk.Now().Add(lookupEntryTTL)
	return nil
}

// GetInodeAttributes returns the current attributes of a known inode.
func (fs *FileSystem) GetInodeAttributes(_ context.Context, op *fuseops.GetInodeAttributesOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	file, ok := fs.tree.GetFile(uint64(op.Inode))
	if !ok {
		return fuse.ENOENT
	}

	op.Attributes = fs.attributesFor(uint64(op.Inode), file)
	op.AttributesExpiration = fs.clk.Now().Add(getattrEntryTTL)
	return nil
}

// ForgetInode is always a no-op success: the tree store keeps every inode
// it has allocated until a re-listing of its parent drops it.
func (fs *FileSystem) ForgetInode(_ context.Context, _ *fuseops.ForgetInodeOp) error {
	return nil
}

// BatchForget is always a no-op success, for the same reason as ForgetInode.
func (fs *FileSystem) BatchForget(_ context.Context, _ *fuseops.BatchForgetOp) error {
	return nil
}

// OpenDir permits opening any known directory inode; no handle state is
// needed beyond the inode number itself, since ReadDir re-derives
// everything from the tree store.
func (fs *FileSystem) OpenDir(_ context.Context, op *fuseops.OpenDirOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, ok := fs.tree.GetInode(uint64(op.Inode)); !ok {
		return fuse.ENOENT
	}
	op.Handle = fuseops.HandleID(op.Inode)
	return nil
}

// ReleaseDirHandle always succeeds; there is no directory handle state to
// release.
func (fs *FileSystem) ReleaseDirHandle(_ context.Context, _ *fuseops.ReleaseDirHandleOp) error {
	return nil
}

// ReadDir implements the kernel's two-phase directory read. At offset zero
// it performs a fresh listing and reconciles the tree store; at any other
// offset it serves from the already-reconciled children, under the
// convention that the next-cookie for the i-th emitted child is offset+i+1.
func (fs *FileSystem) ReadDir(ctx context.Context, op *fuseops.ReadDirOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	ino := uint64(op.Inode)
	in, ok := fs.tree.GetInode(ino)
	if !ok {
		return fuse.ENOENT
	}

	if op.Offset == 0 {
		if err := fs.populateChildrenLocked(ctx, ino); err != nil {
			return err
		}
		in, _ = fs.tree.GetInode(ino)
	}

	entries := fs.direntsLocked(in)

	index := int(op.Offset)
	if index < 0 || index > len(entries) {
		return nil
	}

	for _, de := range entries[index:] {
		n := fuseutil.WriteDirent(op.Dst[op.BytesRead:], de)
		if n == 0 {
			break
		}
		op.BytesRead += n
	}
	return nil
}

// direntsLocked builds the "." / ".." / children sequence for a directory,
// children sorted by name so that the order is the same on every call,
// numbering cookies per the offset+i+1 convention.
func (fs *FileSystem) direntsLocked(in *tree.Inode) []fuseutil.Dirent {
	entries := make([]fuseutil.Dirent, 0, len(in.Children)+2)
	entries = append(entries,
		fuseutil.Dirent{Offset: 1, Inode: fuseops.InodeID(in.Number), Name: ".", Type: fuseutil.DT_Directory},
		fuseutil.Dirent{Offset: 2, Inode: fuseops.InodeID(in.Parent), Name: "..", Type: fuseutil.DT_Directory},
	)

	names := make([]string, 0, len(in.Children))
	for name := range in.Children {
		names = append(names, name)
	}
	sort.Strings(names)

	i := len(entries)
	for _, name := range names {
		childIno := in.Children[name]
		file, _ := fs.tree.GetFile(childIno)
		dt := fuseutil.DT_File
		if file.IsDir() {
			dt = fuseutil.DT_Directory
		}
		entries = append(entries, fuseutil.Dirent{
			Offset: fuseops.DirOffset(i + 1),
			Inode:  fuseops.InodeID(childIno),
			Name:   name,
			Type:   dt,
		})
		i++
	}
	return entries
}

// populateChildrenLocked performs a paged list_all against ino's remote
// file id and reconciles the result into the tree store. Called with mu
// held.
func (fs *FileSystem) populateChildrenLocked(ctx context.Context, ino uint64) error {
	file, ok := fs.tree.GetFile(ino)
	if !ok {
		return fuse.ENOENT
	}

	listing, err := fs.drive.ListAll(ctx, file.FileID)
	if err != nil {
		return fuse.EIO
	}

	fs.tree.ReconcileChildren(ino, listing)
	return nil
}

// OpenFile allocates a file handle and registers it with the read cache.
func (fs *FileSystem) OpenFile(_ context.Context, op *fuseops.OpenFileOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	file, ok := fs.tree.GetFile(uint64(op.Inode))
	if !ok {
		return fuse.ENOENT
	}

	fh := fs.nextHandle
	fs.nextHandle++
	fs.cache.Open(fh, file.FileID, file.Size)
	op.Handle = fuseops.HandleID(fh)
	return nil
}

// ReleaseFileHandle always succeeds, dropping the handle from the read
// cache.
func (fs *FileSystem) ReleaseFileHandle(_ context.Context, op *fuseops.ReleaseFileHandleOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.cache.Release(uint64(op.Handle))
	return nil
}

// ReadFile clamps the request to the file's size and delegates to the read
// cache.
func (fs *FileSystem) ReadFile(ctx context.Context, op *fuseops.ReadFileOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	file, ok := fs.tree.GetFile(uint64(op.Inode))
	if !ok {
		return fuse.ENOENT
	}

	if uint64(op.Offset) >= file.Size {
		op.BytesRead = 0
		return nil
	}

	size := len(op.Dst)
	if remaining := file.Size - uint64(op.Offset); uint64(size) > remaining {
		size = int(remaining)
	}

	data, err := fs.cache.Read(ctx, uint64(op.Handle), op.Offset, size)
	if err != nil {
		return fuse.EIO
	}

	op.BytesRead = copy(op.Dst, data)
	return nil
}

// Destroy releases no additional resources; the drive client's connection
// pool is torn down by the process exiting.
func (fs *FileSystem) Destroy() {}
