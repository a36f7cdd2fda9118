/*
Package domain contains the core data types shared by the convo engine and its adapters.

It is kept pure and free of I/O, following Hexagonal Architecture principles.

# Key Entities

  - State: the serializable position of one dialog instance (thread, line index,
    variable bag, lifecycle status) plus its active child dialog, if any.
  - Message: a rendered line handed to the messaging transport.
  - LifecycleHooks: observability callbacks fired by the engine.
*/
package domain
