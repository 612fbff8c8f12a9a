// Package persistence writes archival data files.
package persistence

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"path"
	"time"
)

// DataFile describes a data file written to disk.
type DataFile struct {
	Prefix   string
	Datatype string
	Subtest  string
	UUID     string

	// Path is the full path of the written file.
	Path string
	// Size is the length of the JSON document, before compression.
	Size int
}

// WriteDataFile writes the gzipped JSON representation of data to a new file
// under prefix/datatype/YYYY/MM/DD/. The file name includes the datatype, the
// subtest, a timestamp and the uuid. Existing files are never overwritten.
func WriteDataFile(prefix, datatype, subtest, uuid string, data any) (*DataFile, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	timestamp := time.Now().UTC()
	dir := path.Join(prefix, datatype, timestamp.Format("2006/01/02"))
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return nil, err
	}
	filepath := path.Join(dir, datatype+"-"+subtest+"-"+
		timestamp.Format("20060102T150405.000000000Z")+"."+uuid+".json.gz")
	fp, err := os.OpenFile(filepath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, err
	}
	writer, err := gzip.NewWriterLevel(fp, gzip.BestSpeed)
	if err != nil {
		fp.Close()
		return nil, err
	}
	n, err := writer.Write(b)
	if err == nil {
		err = writer.Close()
	}
	if err != nil {
		fp.Close()
		return nil, err
	}
	err = fp.Close()
	if err != nil {
		return nil, err
	}
	return &DataFile{
		Prefix:   prefix,
		Datatype: datatype,
		Subtest:  subtest,
		UUID:     uuid,
		Path:     filepath,
		Size:     n,
	}, nil
}
