package sdc

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestSetLogLevel(t *testing.T) {
	lg, ok := GetLogger().(*defaultLogger)
	if !ok {
		t.Fatal("expected default logger")
	}
	defer lg.Logger.SetLevel(logrus.InfoLevel)

	SetLogLevelMax()
	if lg.Logger.GetLevel() != logrus.TraceLevel {
		t.Fatalf("expected trace level, got %v", lg.Logger.GetLevel())
	}

	// children share the level of the default logger
	child := GetLogger().ChildLogger(map[string]interface{}{"component": "test"}).(*defaultLogger)
	if err := SetLogLevel("warn"); err != nil {
		t.Fatal(err)
	}
	if child.Logger.GetLevel() != logrus.WarnLevel {
		t.Fatalf("expected warn level, got %v", child.Logger.GetLevel())
	}

	if err := SetLogLevel("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
