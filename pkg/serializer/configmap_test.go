package serializer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

func TestParseConfigMapURI(t *testing.T) {
	tests := []struct {
		name          string
		uri           string
		wantNamespace string
		wantName      string
		wantErr       bool
	}{
		{
			name:          "valid URI",
			uri:           "cm://lab/sysdiff-result",
			wantNamespace: "lab",
			wantName:      "sysdiff-result",
			wantErr:       false,
		},
		{
			name:          "valid URI with spaces",
			uri:           "cm://lab / sysdiff-result ",
			wantNamespace: "lab",
			wantName:      "sysdiff-result",
			wantErr:       false,
		},
		{
			name:          "valid URI with default namespace",
			uri:           "cm://default/result",
			wantNamespace: "default",
			wantName:      "result",
			wantErr:       false,
		},
		{
			name:    "missing scheme",
			uri:     "lab/sysdiff-result",
			wantErr: true,
		},
		{
			name:    "wrong scheme",
			uri:     "http://lab/sysdiff-result",
			wantErr: true,
		},
		{
			name:    "missing name",
			uri:     "cm://lab/",
			wantErr: true,
		},
		{
			name:    "missing namespace",
			uri:     "cm:///sysdiff-result",
			wantErr: true,
		},
		{
			name:    "missing separator",
			uri:     "cm://lab",
			wantErr: true,
		},
		{
			name:    "empty URI",
			uri:     "",
			wantErr: true,
		},
		{
			name:    "only scheme",
			uri:     "cm://",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			namespace, name, err := ParseConfigMapURI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseConfigMapURI() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr {
				if namespace != tt.wantNamespace {
					t.Errorf("ParseConfigMapURI() namespace = %v, want %v", namespace, tt.wantNamespace)
				}
				if name != tt.wantName {
					t.Errorf("ParseConfigMapURI() name = %v, want %v", name, tt.wantName)
				}
			}
		})
	}
}

func TestNewConfigMapWriter(t *testing.T) {
	tests := []struct {
		name       string
		namespace  string
		cmName     string
		format     Format
		wantFormat Format
	}{
		{
			name:       "valid JSON format",
			namespace:  "default",
			cmName:     "test",
			format:     FormatJSON,
			wantFormat: FormatJSON,
		},
		{
			name:       "valid YAML format",
			namespace:  "lab",
			cmName:     "result",
			format:     FormatYAML,
			wantFormat: FormatYAML,
		},
		{
			name:       "unknown format defaults to JSON",
			namespace:  "default",
			cmName:     "test",
			format:     Format("unknown"),
			wantFormat: FormatJSON,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writer := NewConfigMapWriter(tt.namespace, tt.cmName, tt.format)
			if writer.namespace != tt.namespace {
				t.Errorf("NewConfigMapWriter() namespace = %v, want %v", writer.namespace, tt.namespace)
			}
			if writer.name != tt.cmName {
				t.Errorf("NewConfigMapWriter() name = %v, want %v", writer.name, tt.cmName)
			}
			if writer.format != tt.wantFormat {
				t.Errorf("NewConfigMapWriter() format = %v, want %v", writer.format, tt.wantFormat)
			}
		})
	}
}

func TestConfigMapWriter_Serialize(t *testing.T) {
	k8s := fake.NewClientset()
	res := sampleResult()

	w := NewConfigMapWriter("lab", "sysdiff-result", FormatYAML).WithClient(k8s)
	require.NoError(t, w.Serialize(context.Background(), res))
	require.NoError(t, w.Close())

	cm, err := k8s.CoreV1().ConfigMaps("lab").Get(context.Background(), "sysdiff-result", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "yaml", cm.Data["format"])
	assert.Equal(t, res.Metadata["timestamp"], cm.Data["timestamp"])
	assert.Contains(t, cm.Data["result.yaml"], "kind: CaptureResult")
	assert.Equal(t, "CaptureResult", cm.Labels["app.kubernetes.io/component"])
	assert.Equal(t, "v0.1.0", cm.Labels["app.kubernetes.io/version"])

	// A second apply updates the same object.
	w = NewConfigMapWriter("lab", "sysdiff-result", FormatJSON).WithClient(k8s)
	require.NoError(t, w.Serialize(context.Background(), testConfig{Name: "plain"}))
	cm, err = k8s.CoreV1().ConfigMaps("lab").Get(context.Background(), "sysdiff-result", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Contains(t, cm.Data["result.json"], "plain")
	assert.Equal(t, "unknown", cm.Labels["app.kubernetes.io/component"])
}
