// Package model declares the record types shared by the built-in components.
package model

import "github.com/dramakit/drama/common/datatype"

const namespace = "drama.core.model"

// TempFile points at an imported artifact in remote storage.
var TempFile = datatype.MustDefine(namespace, "TempFile",
	datatype.String("resource"),
)

// CompressedFile points at an archive in remote storage.
var CompressedFile = datatype.MustDefine(namespace, "CompressedFile",
	datatype.String("resource"),
	datatype.StringDefault("file_format", ".zip"),
)

// SimpleTabularDataset points at a delimited text dataset in remote storage.
var SimpleTabularDataset = datatype.MustDefine(namespace, "SimpleTabularDataset",
	datatype.String("resource"),
	datatype.String("delimiter"),
	datatype.StringDefault("encoding", "utf-8"),
	datatype.StringDefault("file_format", ".csv"),
)

// DynamicParameter carries a value received out-of-band while the workflow runs.
var DynamicParameter = datatype.MustDefine(namespace, "DynamicParameter",
	datatype.String("value"),
)
