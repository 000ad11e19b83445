package webhdfs

import (
	"strconv"
	"strings"
)

// queryEncoder is the capability shared by all option sets: rendering the
// accumulated options as a URL query suffix.
type queryEncoder interface {
	query() string
}

// options accumulates per-operation query parameters in insertion order.
// Setting the same name again replaces the earlier value in place.
type options struct {
	pairs []optionPair
}

type optionPair struct {
	name  string
	value string
}

func (o *options) set(name, value string) {
	for i := range o.pairs {
		if o.pairs[i].name == name {
			o.pairs[i].value = value
			return
		}
	}
	o.pairs = append(o.pairs, optionPair{name: name, value: value})
}

// encode renders the options as "&name=value&name=value". Every pair carries
// a leading "&": option fragments are only ever appended after the mandatory
// op= parameter, which supplies the "?" separator.
func (o *options) encode() string {
	if len(o.pairs) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range o.pairs {
		sb.WriteByte('&')
		sb.WriteString(p.name)
		sb.WriteByte('=')
		sb.WriteString(p.value)
	}
	return sb.String()
}

// WriteOptions carries the optional parameters for WriteFile. The zero value
// is ready to use; setters return the receiver for chaining.
type WriteOptions struct {
	options
}

// SetOverwrite controls whether an existing file is replaced.
func (o *WriteOptions) SetOverwrite(overwrite bool) *WriteOptions {
	o.set("overwrite", strconv.FormatBool(overwrite))
	return o
}

// SetBlockSize sets the block size of the created file, in bytes.
func (o *WriteOptions) SetBlockSize(blockSize int64) *WriteOptions {
	o.set("blocksize", strconv.FormatInt(blockSize, 10))
	return o
}

// SetReplication sets the replication factor of the created file.
func (o *WriteOptions) SetReplication(replication int) *WriteOptions {
	o.set("replication", strconv.Itoa(replication))
	return o
}

// SetPermission sets the octal permission of the created file, e.g. 755.
func (o *WriteOptions) SetPermission(permission int) *WriteOptions {
	o.set("permission", strconv.Itoa(permission))
	return o
}

// SetBufferSize sets the server-side transfer buffer size, in bytes.
func (o *WriteOptions) SetBufferSize(bufferSize int) *WriteOptions {
	o.set("buffersize", strconv.Itoa(bufferSize))
	return o
}

func (o *WriteOptions) query() string {
	if o == nil {
		return ""
	}
	return o.encode()
}

// AppendOptions carries the optional parameters for the APPEND operation.
// APPEND itself requires POST, which the request executor does not support,
// so no client operation consumes these yet.
type AppendOptions struct {
	options
}

// SetBufferSize sets the server-side transfer buffer size, in bytes.
func (o *AppendOptions) SetBufferSize(bufferSize int) *AppendOptions {
	o.set("buffersize", strconv.Itoa(bufferSize))
	return o
}

func (o *AppendOptions) query() string {
	if o == nil {
		return ""
	}
	return o.encode()
}

// ReadOptions carries the optional parameters for ReadFile.
type ReadOptions struct {
	options
}

// SetOffset sets the byte position to start reading from.
func (o *ReadOptions) SetOffset(offset int64) *ReadOptions {
	o.set("offset", strconv.FormatInt(offset, 10))
	return o
}

// SetLength limits the number of bytes returned.
func (o *ReadOptions) SetLength(length int64) *ReadOptions {
	o.set("length", strconv.FormatInt(length, 10))
	return o
}

// SetBufferSize sets the server-side transfer buffer size, in bytes.
func (o *ReadOptions) SetBufferSize(bufferSize int) *ReadOptions {
	o.set("buffersize", strconv.Itoa(bufferSize))
	return o
}

func (o *ReadOptions) query() string {
	if o == nil {
		return ""
	}
	return o.encode()
}

// MakeDirOptions carries the optional parameters for MakeDir.
type MakeDirOptions struct {
	options
}

// SetPermission sets the octal permission of the created directory, e.g. 755.
func (o *MakeDirOptions) SetPermission(permission int) *MakeDirOptions {
	o.set("permission", strconv.Itoa(permission))
	return o
}

func (o *MakeDirOptions) query() string {
	if o == nil {
		return ""
	}
	return o.encode()
}

// RemoveOptions carries the optional parameters for Remove.
type RemoveOptions struct {
	options
}

// SetRecursive controls whether non-empty directories are removed.
func (o *RemoveOptions) SetRecursive(recursive bool) *RemoveOptions {
	o.set("recursive", strconv.FormatBool(recursive))
	return o
}

func (o *RemoveOptions) query() string {
	if o == nil {
		return ""
	}
	return o.encode()
}
