// Copyright IBM Corp. 2014, 2025
// SPDX-License-Identifier: MPL-2.0

//go:build windows
// +build windows

package renderer

func getFileOwnership(path string) (*int, *int) {
	return nil, nil
}

func setFileOwnership(path string, uid, gid *int) error {
	return nil
}

func isChownNeeded(path string, uid, gid *int) bool {
	return false
}
