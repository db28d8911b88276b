package failure

// Package failure maps raw transport, filesystem and protocol errors into a
// closed taxonomy and decides what the caller may retry. Classification relies
// on sentinel errors, status codes and errno values, never on message text.
