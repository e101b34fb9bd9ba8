package embed

import (
	"fmt"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ortInit guards process-wide ONNX Runtime initialization.
var ortInit struct {
	once sync.Once
	err  error
}

func initRuntime(libPath string) error {
	ortInit.once.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		ortInit.err = ort.InitializeEnvironment()
	})
	return ortInit.err
}

// ONNXEmbedder runs a BERT-style sentence embedding model (MiniLM-class)
// locally: tokenize, infer, mean-pool over the attention mask, L2
// normalize. The ONNX Runtime shared library is expected next to the model
// file.
type ONNXEmbedder struct {
	session  *ort.DynamicAdvancedSession
	tok      *tokenizer
	embedDim int64
}

// NewONNXEmbedder loads the model and vocabulary and creates an inference
// session. The model must expose the standard BERT inputs (input_ids,
// attention_mask, token_type_ids) and a [batch, seq, dim] output.
func NewONNXEmbedder(modelPath, vocabPath string) (*ONNXEmbedder, error) {
	libPath := filepath.Join(filepath.Dir(modelPath), "libonnxruntime.so")
	if err := initRuntime(libPath); err != nil {
		return nil, fmt.Errorf("embed: initialize onnx runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("embed: read model info: %w", err)
	}

	required := []string{"input_ids", "attention_mask", "token_type_ids"}
	names := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		names[in.Name] = true
	}
	for _, name := range required {
		if !names[name] {
			return nil, fmt.Errorf("embed: model missing input %q", name)
		}
	}

	if len(outputs) == 0 {
		return nil, fmt.Errorf("embed: model has no outputs")
	}
	dims := outputs[0].Dimensions
	if len(dims) != 3 {
		return nil, fmt.Errorf("embed: expected 3D output tensor, got %v", dims)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("embed: session options: %w", err)
	}
	defer opts.Destroy()

	session, err := ort.NewDynamicAdvancedSession(modelPath, required, []string{outputs[0].Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("embed: create session: %w", err)
	}

	tok, err := newTokenizer(vocabPath)
	if err != nil {
		session.Destroy()
		return nil, err
	}

	return &ONNXEmbedder{session: session, tok: tok, embedDim: dims[2]}, nil
}

func (e *ONNXEmbedder) Dim() int { return int(e.embedDim) }

func (e *ONNXEmbedder) Embed(text string) ([]float32, error) {
	inputIDs, mask := e.tok.encode(text)
	seqLen := int64(len(inputIDs))
	tokenTypes := make([]int64, seqLen)

	shape := ort.NewShape(1, seqLen)
	tIDs, err := ort.NewTensor(shape, inputIDs)
	if err != nil {
		return nil, fmt.Errorf("embed: input_ids tensor: %w", err)
	}
	defer tIDs.Destroy()

	tMask, err := ort.NewTensor(shape, mask)
	if err != nil {
		return nil, fmt.Errorf("embed: attention_mask tensor: %w", err)
	}
	defer tMask.Destroy()

	tTypes, err := ort.NewTensor(shape, tokenTypes)
	if err != nil {
		return nil, fmt.Errorf("embed: token_type_ids tensor: %w", err)
	}
	defer tTypes.Destroy()

	tOut, err := ort.NewEmptyTensor[float32](ort.NewShape(1, seqLen, e.embedDim))
	if err != nil {
		return nil, fmt.Errorf("embed: output tensor: %w", err)
	}
	defer tOut.Destroy()

	if err := e.session.Run([]ort.Value{tIDs, tMask, tTypes}, []ort.Value{tOut}); err != nil {
		return nil, fmt.Errorf("embed: inference: %w", err)
	}

	vec := meanPool(tOut.GetData(), mask, seqLen, e.embedDim)
	l2Normalize(vec)
	return vec, nil
}

func (e *ONNXEmbedder) Close() error {
	return e.session.Destroy()
}

// meanPool averages token vectors weighted by the attention mask.
func meanPool(hidden []float32, mask []int64, seqLen, dim int64) []float32 {
	pooled := make([]float32, dim)
	var count float32
	for t := int64(0); t < seqLen; t++ {
		if mask[t] == 0 {
			continue
		}
		count++
		row := hidden[t*dim : (t+1)*dim]
		for d := int64(0); d < dim; d++ {
			pooled[d] += row[d]
		}
	}
	if count > 0 {
		for d := range pooled {
			pooled[d] /= count
		}
	}
	return pooled
}
