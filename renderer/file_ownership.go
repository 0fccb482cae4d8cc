// Copyright IBM Corp. 2014, 2025
// SPDX-License-Identifier: MPL-2.0

//go:build !windows
// +build !windows

package renderer

import (
	"os"
	"syscall"
)

// getFileOwnership returns the uid and gid of path, or nils if it cannot be
// stat'ed.
func getFileOwnership(path string) (*int, *int) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		return nil, nil
	}

	st, ok := fileInfo.Sys().(*syscall.Stat_t)
	if !ok {
		return nil, nil
	}
	return intPtr(int(st.Uid)), intPtr(int(st.Gid))
}

func setFileOwnership(path string, uid, gid *int) error {
	wantedUid := sanitizeUidGid(uid)
	wantedGid := sanitizeUidGid(gid)
	if wantedUid == -1 && wantedGid == -1 {
		return nil //noop
	}
	return os.Chown(path, wantedUid, wantedGid)
}

func isChownNeeded(path string, uid, gid *int) bool {
	wantedUid := sanitizeUidGid(uid)
	wantedGid := sanitizeUidGid(gid)
	if wantedUid == -1 && wantedGid == -1 {
		return false
	}

	currUid, currGid := getFileOwnership(path)
	if currUid == nil || currGid == nil {
		return true
	}
	return (wantedUid != -1 && wantedUid != *currUid) ||
		(wantedGid != -1 && wantedGid != *currGid)
}

// sanitizeUidGid sanitizes the uid/gid so that can be an input for os.Chown
func sanitizeUidGid(id *int) int {
	if id == nil {
		return -1
	}
	return *id
}

func intPtr(i int) *int {
	return &i
}
