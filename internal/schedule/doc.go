// Package schedule implements irrigation schedule lifecycle management:
// conflict detection against existing windows, the two-phase hardware
// acknowledgement state machine, and the ack consumer feeding it.
//
// A schedule opens one valve for a time-of-day window on selected days, with
// the parent pump pre-rolled shortly after the valve opens. Every create,
// update and delete enters a pending state (CREATING, UPDATING, DELETING)
// with both hardware acks cleared, publishes the full schedule to the
// valve's and pump's hardware command topics, and only advances when both
// controllers have acknowledged. A delete completes by removing the record.
//
// The core never marks a schedule acknowledged on its own; acks arrive as
// MQTT messages on flostat/{org}/schedule/ack and are only honoured while
// the schedule is pending.
package schedule
