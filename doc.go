/*
Package mfs provides a federating filesystem that presents two backends behind
a single namespace, mfs://sz-cluster/ by default.

# Overview

The primary backend H is authoritative: every write and every metadata change
goes to it. The secondary backend J, addressed with the jfs scheme, holds a
mirrored or partially synchronized copy of the same tree and serves reads of
files H does not have. Both backends are absfs.FileSystem values; afero
filesystems can be lifted with FromAfero.

# Dispatch

Every read-side operation probes H first:

  - If H holds the path, the operation is served by H.
  - Otherwise it is served by J, whatever J answers.

GetFileStatus is the exception: it asks H and falls back to J only when H
reports not-found. Writes (Create, Append, Mkdirs, Rename and the metadata
setters) always go to H. Delete removes J's copy first, best effort, and then
the copy on H.

Paths are rewritten between the three namespaces by a Translator. Only scheme
and authority change; the path component passes through untouched.

# Listing

ListStatus merges the two backends:

	H: /d/a (file), /d/b (dir)
	J: /d/b (dir), /d/c (dir), /d/z (file)

	ListStatus(/d) = [a, b, c]

H's entries come first, in H's order, followed by the directories of J that
H does not list. J's files are only shown when H lists nothing.

# Basic Usage

	package main

	import (
	    "github.com/absfs/memfs"
	    "github.com/absfs/mfs"
	)

	func main() {
	    h, _ := memfs.NewFS()
	    j, _ := memfs.NewFS()

	    fs, _ := mfs.New(
	        mfs.WithPrimary(mfs.Namespace{Scheme: "hdfs", Authority: "nn:8020"}, h),
	        mfs.WithSecondary(mfs.Namespace{Authority: "vol"}, j),
	    )

	    entries, _ := fs.ListStatus(mfs.NewPath("/warehouse"))
	    for _, st := range entries {
	        println(st.Path.String()) // mfs://sz-cluster/warehouse/...
	    }
	}

A hosting framework builds the adapter with Initialize instead, resolving H
from fs.defaultFS and J from juicefs.name through a Registry.

# Probe Cache

Existence probes against H can be cached with WithProbeCache or the
mfs.probe.cache.* configuration keys. Writes made through the adapter
invalidate the affected entries; writes made to H directly become visible
when the entry expires. Each operation issues its own probe; concurrent
operations on one path never share a Stat.

# absfs View

AbsFS returns the adapter as an absfs.FileSystem so that code written against
absfs can use it unchanged. Directory handles return the merged listing.
*/
package mfs
