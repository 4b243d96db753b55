// Package common defines constants, the client-wide error taxonomy and a few
// byte helpers shared by every client layer.
package common
