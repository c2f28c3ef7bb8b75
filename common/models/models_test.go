package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func validTask(name string) Task {
	return Task{Name: name, Module: "test." + name, Options: DefaultTaskOptions()}
}

func TestTaskValidate(t *testing.T) {
	tests := []struct {
		name    string
		task    Task
		wantErr string
	}{
		{"valid", validTask("First"), ""},
		{"empty name", Task{Module: "test.M"}, "must not be empty"},
		{"space in name", Task{Name: "First Task", Module: "test.M"}, "spaces"},
		{"dot in name", Task{Name: "First.Task", Module: "test.M"}, "dots"},
		{"empty module", Task{Name: "First"}, "module must not be empty"},
		{"ref without output", Task{Name: "Second", Module: "test.M",
			Inputs: map[string]string{"Model": "First"}}, "<task>.<output>"},
		{"ref with extra dot", Task{Name: "Second", Module: "test.M",
			Inputs: map[string]string{"Model": "First.Model.Extra"}}, "<task>.<output>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.task.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWorkflowValidateDuplicateNames(t *testing.T) {
	w := Workflow{ID: "wf", Tasks: []Task{validTask("First"), validTask("First")}}
	err := w.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicated task names")
}

func TestWorkflowValidateUnknownReference(t *testing.T) {
	second := validTask("Second")
	second.Inputs = map[string]string{"Model": "Missing.Model"}
	w := Workflow{ID: "wf", Tasks: []Task{validTask("First"), second}}
	err := w.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown task Missing")
}

func TestWorkflowValidateSelfReference(t *testing.T) {
	first := validTask("First")
	first.Inputs = map[string]string{"Model": "First.Model"}
	w := Workflow{ID: "wf", Tasks: []Task{first}}
	err := w.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "its own output")
}

func TestWorkflowValidateOK(t *testing.T) {
	second := validTask("Second")
	second.Inputs = map[string]string{"Model": "First.Model", "Extra": "First.Extra"}
	w := Workflow{ID: "wf", Tasks: []Task{validTask("First"), second}}
	assert.NoError(t, w.Validate())
}

func TestUpstreamTasksDeduplicates(t *testing.T) {
	task := validTask("Third")
	task.Inputs = map[string]string{
		"A": "First.Model",
		"B": "First.Extra",
		"C": "Second.Model",
	}
	assert.ElementsMatch(t, []string{"First", "Second"}, task.UpstreamTasks())
}

func TestAuthorDefaultsToAnonymous(t *testing.T) {
	w := Workflow{ID: "wf"}
	assert.Equal(t, "anonymous", w.Author())

	w.Metadata = map[string]any{"author": "alice"}
	assert.Equal(t, "alice", w.Author())
}

func TestBlockMessageDict(t *testing.T) {
	m := NewBlockMessage("First.Point", []byte{0x02, 0x04}, `{"type":"record"}`)
	dict := m.AsDict()
	assert.Equal(t, MessageTypeBlock, dict["type"])
	assert.Equal(t, "First.Point", dict["key"])
	assert.Equal(t, []byte{0x02, 0x04}, dict["data"])
	assert.Equal(t, ServoAvro, dict["servo"])
	assert.Equal(t, `{"type":"record"}`, dict["schem"])
}

func TestSignalMessageDictUsesUndefinedDefaults(t *testing.T) {
	dict := NewSignalMessage(SignalPoissonPill).AsDict()
	assert.Equal(t, MessageTypeSignal, dict["type"])
	assert.Equal(t, Undefined, dict["key"])
	assert.Equal(t, Undefined, dict["servo"])
	assert.Equal(t, Undefined, dict["schem"])
	assert.Equal(t, []byte(SignalPoissonPill), dict["data"])
}

func TestMessageFromDictStripsUndefined(t *testing.T) {
	m := MessageFromDict(map[string]any{
		"type":  MessageTypeSignal,
		"key":   Undefined,
		"data":  []byte(SignalInterruption),
		"servo": Undefined,
		"schem": Undefined,
	})
	assert.Equal(t, MessageTypeSignal, m.Type)
	assert.Empty(t, m.Key)
	assert.Empty(t, m.Servo)
	assert.Empty(t, m.Schem)
	assert.Equal(t, SignalInterruption, string(m.Data))
}

func TestResourceValidate(t *testing.T) {
	assert.NoError(t, NewMinIOResource("minio://bucket/wf/task/file.txt").Validate())
	assert.NoError(t, NewLocalResource("/tmp/file.txt").Validate())
	assert.Error(t, Resource{Scheme: SchemeMinIO, Resource: "/tmp/file.txt"}.Validate())
}

func TestDefaultTaskOptions(t *testing.T) {
	opts := DefaultTaskOptions()
	assert.True(t, opts.OnFailForceInterruption)
	assert.True(t, opts.OnFailRemoveLocalDir)
	assert.Empty(t, opts.QueueName)
}

func TestResultFilesHoldBareAndGroupedEntries(t *testing.T) {
	result := TaskResult{
		Files: []ResultFile{
			NewResultFile(NewMinIOResource("minio://alice/wf/task/out.tsv")),
			NewResultFileGroup(map[string]Resource{
				"train": NewMinIOResource("minio://alice/wf/task/train.csv"),
				"test":  NewMinIOResource("minio://alice/wf/task/test.csv"),
			}),
		},
	}

	encoded, err := json.Marshal(result)
	require.NoError(t, err)
	assert.Contains(t, string(encoded), `"minio://alice/wf/task/out.tsv"`)
	assert.Contains(t, string(encoded), `"train"`)

	var decoded TaskResult
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	require.Len(t, decoded.Files, 2)

	require.NotNil(t, decoded.Files[0].Resource)
	assert.Equal(t, "minio://alice/wf/task/out.tsv", decoded.Files[0].Resource.String())
	assert.Nil(t, decoded.Files[0].Group)

	require.Nil(t, decoded.Files[1].Resource)
	assert.Equal(t, "minio://alice/wf/task/train.csv", decoded.Files[1].Group["train"].String())
	assert.Equal(t, "minio://alice/wf/task/test.csv", decoded.Files[1].Group["test"].String())
}

func TestResultFilesBSONRoundTrip(t *testing.T) {
	result := TaskResult{
		Files: []ResultFile{
			NewResultFile(NewHDFSResource("hdfs://alice/wf/task/out.tsv")),
			NewResultFileGroup(map[string]Resource{
				"model": NewMinIOResource("minio://alice/wf/task/model.bin"),
			}),
		},
	}

	encoded, err := bson.Marshal(result)
	require.NoError(t, err)

	var decoded TaskResult
	require.NoError(t, bson.Unmarshal(encoded, &decoded))
	require.Len(t, decoded.Files, 2)
	require.NotNil(t, decoded.Files[0].Resource)
	assert.Equal(t, "hdfs://alice/wf/task/out.tsv", decoded.Files[0].Resource.String())
	assert.Equal(t, "minio://alice/wf/task/model.bin", decoded.Files[1].Group["model"].String())
}
