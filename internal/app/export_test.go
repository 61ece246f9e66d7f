package app

// Test hooks for the external app_test package.
type FakeScheduler = fakeScheduler

var NewFakeScheduler = newFakeScheduler
