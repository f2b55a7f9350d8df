//go:build !linux && !darwin

package stack

func kernelRelease() string {
	return ""
}
