package main

import (
	"flag"
	"os"

	"github.com/m-lab/go/cloud/bqx"
	"github.com/m-lab/go/rtx"
	"github.com/m-lab/txbench/pkg/txbench/model"

	"cloud.google.com/go/bigquery"
)

var txbenchSchema string

func init() {
	flag.StringVar(&txbenchSchema, "txbench", "/var/spool/datatypes/txbench.json", "filename to write txbench schema")
}

func main() {
	flag.Parse()
	// Generate and save the schema for autoloading.
	sch, err := bigquery.InferSchema(model.ArchivalData{})
	rtx.Must(err, "failed to generate txbench schema")
	sch = bqx.RemoveRequired(sch)
	b, err := sch.ToJSONFields()
	rtx.Must(err, "failed to marshal txbench schema")
	err = os.WriteFile(txbenchSchema, b, 0o644)
	rtx.Must(err, "failed to write txbench schema")
}
