// Copyright (c) Cross-Reference Database System Authors.
// Licensed under the MIT License.

/*
Package testutil 提供 Cross-Reference 测试的共享工具和辅助函数。

# 概述

testutil 包为各包的单元测试提供统一的辅助能力，
避免重复实现相似的测试基础设施。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 断言工具: AssertJSONEqual / AssertEventuallyTrue
  - 数据工具: MustJSON / MustParseJSON / WaitFor

# 子包

  - testutil/mocks: MockEmbeddingProvider（embedding.Provider）与
    MockGenerator（generation.Generator），支持固定输出与错误注入
  - testutil/fixtures: 测试数据工厂，提供 CSV、XLSX 上传文件与
    覆盖 db1..db4 的样例记录

# 使用示例

	ctx := testutil.TestContext(t)
	gen := mocks.NewMockGenerator().WithResponse("Acme renewed in 2023.")
	engine, err := crossref.New(ctx, cfg, crossref.WithGenerator(gen))
*/
package testutil
