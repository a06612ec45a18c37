// Command authencvec generates known-answer test vectors.
//
// It reads a YAML list of requests, fills in any missing key or
// IV with random bytes, seals each request and writes the results
// as JSON. A missing message is replaced by msgLen counting bytes.
//
//	vectors:
//	  - comment: ESP-style 96-bit tag
//	    suite: authenc(hmac(sha1),cbc(aes))
//	    tagSize: 12
//	    aad: "0001020304050607"
//	    msgLen: 64
package main

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"sigs.k8s.io/yaml"

	"github.com/ericlagergren/authenc"
)

var (
	configPath string
	outPath    string
	verbose    bool
)

func init() {
	flag.StringVar(&configPath, "config", "-", "YAML vector description (- for stdin)")
	flag.StringVar(&outPath, "o", "-", "output file (- for stdout)")
	flag.BoolVar(&verbose, "v", false, "log at debug level")
}

// hexStr is a byte slice encoded as hexadecimal text.
type hexStr []byte

func (h hexStr) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(h)), nil
}

func (h *hexStr) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(string(text))
	if err != nil {
		return err
	}
	*h = b
	return nil
}

// config is the input document.
type config struct {
	Vectors []request `json:"vectors"`
}

// request describes one vector. Empty Key, IV and Plaintext
// fields are generated.
type request struct {
	Comment        string `json:"comment,omitempty"`
	Suite          string `json:"suite"`
	Key            hexStr `json:"key,omitempty"`
	EncKeySize     int    `json:"encKeySize,omitempty"`
	TagSize        int    `json:"tagSize,omitempty"`
	IV             hexStr `json:"iv,omitempty"`
	AdditionalData hexStr `json:"aad,omitempty"`
	Plaintext      hexStr `json:"msg,omitempty"`
	PlaintextLen   int    `json:"msgLen,omitempty"`
	DoublePass     bool   `json:"doublePass,omitempty"`
}

// vector is the generated known answer.
type vector struct {
	Comment        string `json:"comment,omitempty"`
	Suite          string `json:"suite"`
	Key            hexStr `json:"key"`
	TagSize        int    `json:"tagSize"`
	IV             hexStr `json:"iv"`
	AdditionalData hexStr `json:"aad"`
	Plaintext      hexStr `json:"msg"`
	Ciphertext     hexStr `json:"ct"`
	Tag            hexStr `json:"tag"`
}

func newLogger(verbose bool) *zap.Logger {
	lv := zap.NewAtomicLevelAt(zap.InfoLevel)
	if verbose {
		lv.SetLevel(zap.DebugLevel)
	}
	encoderCfg := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "ts",
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	enc := zapcore.NewConsoleEncoder(encoderCfg)
	return zap.New(zapcore.NewCore(enc, zapcore.Lock(os.Stderr), lv))
}

func main() {
	flag.Parse()
	log := newLogger(verbose)
	defer log.Sync()

	in := os.Stdin
	if configPath != "-" {
		f, err := os.Open(configPath)
		if err != nil {
			log.Fatal("can't open config", zap.String("path", configPath), zap.Error(err))
		}
		defer f.Close()
		in = f
	}
	cfg, err := readConfig(in)
	if err != nil {
		log.Fatal("bad config", zap.String("path", configPath), zap.Error(err))
	}

	vecs := make([]vector, 0, len(cfg.Vectors))
	for i := range cfg.Vectors {
		v, err := generate(&cfg.Vectors[i], log)
		if err != nil {
			log.Fatal("can't generate vector", zap.Int("index", i), zap.Error(err))
		}
		vecs = append(vecs, *v)
	}

	out := os.Stdout
	if outPath != "-" {
		f, err := os.Create(outPath)
		if err != nil {
			log.Fatal("can't create output", zap.String("path", outPath), zap.Error(err))
		}
		defer f.Close()
		out = f
	}
	w := bufio.NewWriter(out)
	if err := writeVectors(w, vecs); err != nil {
		log.Fatal("can't write vectors", zap.Error(err))
	}
	if err := w.Flush(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log.Info("wrote vectors", zap.Int("count", len(vecs)), zap.String("path", outPath))
}

func readConfig(r io.Reader) (*config, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var cfg config
	if err := yaml.UnmarshalStrict(buf, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Vectors) == 0 {
		return nil, errors.New("no vectors")
	}
	return &cfg, nil
}

func generate(r *request, log *zap.Logger) (*vector, error) {
	s, ok := authenc.Lookup(r.Suite)
	if !ok {
		return nil, fmt.Errorf("unknown suite %q", r.Suite)
	}

	key := r.Key
	if len(key) == 0 {
		n := r.EncKeySize
		if n == 0 {
			n = 16
			if s.Block == authenc.TripleDES {
				n = 24
			}
		}
		var err error
		key, err = authenc.GenerateKey(s, n)
		if err != nil {
			return nil, err
		}
	}
	iv := r.IV
	if len(iv) == 0 {
		var err error
		iv, err = authenc.GenerateIV(s)
		if err != nil {
			return nil, err
		}
	}
	plaintext := r.Plaintext
	if len(plaintext) == 0 && r.PlaintextLen > 0 {
		plaintext = make([]byte, r.PlaintextLen)
		for i := range plaintext {
			plaintext[i] = byte(i)
		}
	}

	opts := []authenc.Option{authenc.WithLogger(log)}
	if r.DoublePass {
		opts = append(opts, authenc.WithDoublePass())
	}
	c, err := authenc.New(s, key, r.TagSize, opts...)
	if err != nil {
		return nil, err
	}
	defer c.Reset()

	sealed, err := c.Seal(nil, iv, plaintext, r.AdditionalData)
	if err != nil {
		return nil, err
	}
	n := len(plaintext)
	return &vector{
		Comment:        r.Comment,
		Suite:          s.Name,
		Key:            key,
		TagSize:        c.TagSize(),
		IV:             iv,
		AdditionalData: r.AdditionalData,
		Plaintext:      plaintext,
		Ciphertext:     sealed[:n],
		Tag:            sealed[n:],
	}, nil
}

func writeVectors(w io.Writer, vecs []vector) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(vecs)
}
