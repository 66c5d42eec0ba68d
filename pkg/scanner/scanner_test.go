package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/diffgrader/diffgrader/pkg/config"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("Failed to create directory: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("Failed to create file %s: %v", name, err)
		}
	}
}

func TestNewScanner(t *testing.T) {
	s := NewScanner(nil)
	if s == nil {
		t.Fatal("NewScanner(nil) returned nil")
	}
	if s.config == nil {
		t.Error("scanner.config should not be nil when passing nil")
	}

	cfg := config.DefaultConfig()
	s = NewScanner(cfg)
	if s.config != cfg {
		t.Error("scanner.config should be the provided config")
	}
}

func TestScanDir(t *testing.T) {
	tmpDir := t.TempDir()
	writeFiles(t, tmpDir, map[string]string{
		"Main.java":           "public class Main {}\n",
		"util/Helper.java":    "public class Helper {}\n",
		"util/notes.txt":      "not java\n",
		"model/Account.java":  "public class Account {}\n",
		"scripts/deploy.sh":   "#!/bin/sh\n",
		"model/Account.class": "binary\n",
	})

	s := NewScanner(nil)
	result, err := s.ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}

	if len(result) != 3 {
		t.Errorf("ScanDir() found %d files, want 3", len(result))
	}

	found := make(map[string]bool)
	for _, f := range result {
		rel, _ := filepath.Rel(tmpDir, f)
		found[rel] = true
	}
	for _, want := range []string{"Main.java", filepath.Join("util", "Helper.java"), filepath.Join("model", "Account.java")} {
		if !found[want] {
			t.Errorf("File %s was not found", want)
		}
	}
}

func TestScanDirExcludesDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	writeFiles(t, tmpDir, map[string]string{
		"Main.java":            "public class Main {}\n",
		"target/Gen.java":      "public class Gen {}\n",
		"build/Out.java":       "public class Out {}\n",
		".git/hooks/Hook.java": "public class Hook {}\n",
		"src/target/inner.txt": "ignored anyway\n",
	})

	s := NewScanner(nil)
	result, err := s.ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}

	if len(result) != 1 {
		t.Errorf("ScanDir() found %d files, want 1 (excluded dirs should be skipped)", len(result))
		for _, f := range result {
			t.Logf("  Found: %s", f)
		}
	}
}

func TestScanDirExcludesPatterns(t *testing.T) {
	tmpDir := t.TempDir()
	writeFiles(t, tmpDir, map[string]string{
		"Calculator.java":      "public class Calculator {}\n",
		"CalculatorTest.java":  "public class CalculatorTest {}\n",
		"CalculatorTests.java": "public class CalculatorTests {}\n",
		"package-info.java":    "package com.example;\n",
	})

	s := NewScanner(nil)
	result, err := s.ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}

	if len(result) != 1 {
		t.Errorf("ScanDir() found %d files, want 1", len(result))
		for _, f := range result {
			t.Logf("  Found: %s", f)
		}
	}
}

func TestScanFile(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name     string
		filename string
		want     bool
	}{
		{"java file", "Main.java", true},
		{"uppercase extension", "Legacy.JAVA", true},
		{"text file", "readme.txt", false},
		{"test file excluded", "MainTest.java", false},
		{"directory", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tmpDir
			if tt.filename != "" {
				path = filepath.Join(tmpDir, tt.filename)
				if err := os.WriteFile(path, []byte("content\n"), 0o644); err != nil {
					t.Fatalf("Failed to create file: %v", err)
				}
			}

			s := NewScanner(nil)
			got, err := s.ScanFile(path)
			if err != nil {
				t.Fatalf("ScanFile() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ScanFile(%s) = %v, want %v", tt.filename, got, tt.want)
			}
		})
	}
}

func TestScanFileNonExistent(t *testing.T) {
	s := NewScanner(nil)
	if _, err := s.ScanFile("/nonexistent/path/File.java"); err == nil {
		t.Error("ScanFile() should return error for non-existent file")
	}
}

func TestScanDirEmptyDirectory(t *testing.T) {
	s := NewScanner(nil)
	result, err := s.ScanDir(t.TempDir())
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}
	if len(result) != 0 {
		t.Errorf("ScanDir() on empty dir returned %d files, want 0", len(result))
	}
}

func TestIsJavaFile(t *testing.T) {
	if !IsJavaFile("src/Main.java") {
		t.Error("IsJavaFile should accept .java")
	}
	if IsJavaFile("Main.kt") {
		t.Error("IsJavaFile should reject .kt")
	}
}
